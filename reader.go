// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"crypto/tls"
	"io"
	"math"
	"net/http"
)

// A Response is the logical response header delivered to a response
// handler. The response body is read separately through the BodyReader
// delivered alongside it.
type Response struct {
	// Status is the full status line text, e.g. "200 OK".
	Status string
	// StatusCode is the numeric response status code.
	StatusCode int
	// Proto is the protocol version the response arrived on, e.g.
	// "HTTP/2.0".
	Proto string
	// Header contains the response header fields.
	Header http.Header
	// ContentLength is the declared length of the response body, or
	// -1 if unknown.
	ContentLength int64
	// TLS holds the TLS connection state the response arrived on, or
	// nil for cleartext responses.
	TLS *tls.ConnectionState
}

func convertResponse(hresp *http.Response) (*Response, error) {
	if hresp.StatusCode < 100 || hresp.StatusCode > 999 {
		return nil, &ResponseConversionError{
			Reason: "transport response has out-of-range status code",
		}
	}
	return &Response{
		Status:        hresp.Status,
		StatusCode:    hresp.StatusCode,
		Proto:         hresp.Proto,
		Header:        hresp.Header,
		ContentLength: hresp.ContentLength,
		TLS:           hresp.TLS,
	}, nil
}

// readChunk is the buffer size ForEach reads with.
const readChunk = 32 * 1024

// A BodyReader is a concluding reader over a response body: once the
// body has been fully consumed, the reader also yields the response's
// trailers, if any. It is valid only within the response handler it is
// delivered to; the pipeline closes it when the handler returns.
//
// A BodyReader is not safe for concurrent use.
type BodyReader struct {
	hresp     *http.Response
	concluded bool
}

func newBodyReader(hresp *http.Response) *BodyReader {
	return &BodyReader{hresp: hresp}
}

// Read streams body bytes into p, implementing io.Reader.
func (r *BodyReader) Read(p []byte) (int, error) {
	n, err := r.hresp.Body.Read(p)
	if err == io.EOF {
		r.concluded = true
	}
	return n, err
}

// Collect reads the remainder of the body, up to limit bytes, and
// returns it. If the body is longer than limit, Collect fails with a
// *LengthLimitError and the body is left partially consumed.
func (r *BodyReader) Collect(limit int64) ([]byte, error) {
	if limit < 0 {
		panic("conduit: negative collection limit")
	}
	// Overage is detected by reading one byte past the limit. The
	// bound must not overflow when limit is math.MaxInt64; at that
	// limit no in-memory body can exceed it, so the extra byte is
	// unnecessary anyway.
	bound := limit
	if bound < math.MaxInt64 {
		bound++
	}
	b, err := io.ReadAll(io.LimitReader(r.hresp.Body, bound))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, &LengthLimitError{Limit: limit}
	}
	r.concluded = true
	return b, nil
}

// ForEach streams the remainder of the body through fn, one chunk at a
// time. The chunk slice is reused between calls: fn must not retain
// it. A non-nil error from fn stops the iteration and is returned
// unchanged.
func (r *BodyReader) ForEach(fn func(chunk []byte) error) error {
	buf := make([]byte, readChunk)
	for {
		n, err := r.hresp.Body.Read(buf)
		if n > 0 {
			if ferr := fn(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			r.concluded = true
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Trailer returns the response's trailer fields. It returns nil until
// the body has been consumed to its end by Read, Collect, or ForEach,
// and nil always if the response concludes without trailers.
func (r *BodyReader) Trailer() http.Header {
	if !r.concluded || len(r.hresp.Trailer) == 0 {
		return nil
	}
	return r.hresp.Trailer
}

// Close discards any unread portion of the body and releases the
// underlying connection for reuse. The pipeline calls Close after the
// response handler returns; calling it earlier is harmless.
func (r *BodyReader) Close() error {
	return r.hresp.Body.Close()
}
