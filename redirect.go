// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"net/http"
)

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

// redirectRequest synthesizes the follow-up request proposed by a
// redirect response, following the method rewriting rules of the
// standard HTTP client: 303 rewrites everything but HEAD to a bodyless
// GET, 301 and 302 do the same for methods other than GET and HEAD,
// and 307/308 preserve the method and body. The second return value
// reports whether the original body travels with the follow-up
// request.
func redirectRequest(prev *Request, hresp *http.Response) (*Request, bool, error) {
	loc := hresp.Header.Get("Location")
	if loc == "" {
		return nil, false, &ResponseConversionError{
			Reason: "redirect response missing Location header",
		}
	}
	u, err := prev.URL.Parse(loc)
	if err != nil {
		return nil, false, &ResponseConversionError{
			Reason: "redirect response has malformed Location header",
			Cause:  err,
		}
	}

	next := prev.Clone()
	next.URL = u
	next.Host = ""

	keepBody := true
	method := prev.methodOrGet()
	switch hresp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound:
		if method != "GET" && method != "HEAD" {
			next.Method = "GET"
			keepBody = false
		}
	case http.StatusSeeOther:
		if method != "HEAD" {
			next.Method = "GET"
		}
		keepBody = false
	}
	if !keepBody {
		next.Header.Del("Content-Type")
		next.Header.Del("Content-Length")
		next.Header.Del("Transfer-Encoding")
	}
	return next, keepBody, nil
}
