// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const nilCtxMsg = "conduit: nil context"

// A LengthLimitError reports that a response body exceeded the
// collection bound passed to BodyReader.Collect.
type LengthLimitError struct {
	// Limit is the bound, in bytes, that the body exceeded.
	Limit int64
}

func (e *LengthLimitError) Error() string {
	return fmt.Sprintf("conduit: response body exceeds %d-byte collection limit", e.Limit)
}

// A ResponseConversionError reports that a transport-level response
// could not be mapped onto the logical response model, for example a
// redirect response whose Location header is absent or malformed.
type ResponseConversionError struct {
	Reason string
	Cause  error
}

func (e *ResponseConversionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("conduit: %s: %v", e.Reason, e.Cause)
	}
	return "conduit: " + e.Reason
}

// Unwrap returns the underlying cause, if any.
func (e *ResponseConversionError) Unwrap() error {
	return e.Cause
}

// IsCancelled indicates whether err, or any error it wraps, reports
// that a Perform call was aborted by cancellation of its context.
// Deadline expiry on the context is not cancellation; test for it with
// the error's Timeout method, as with the standard HTTP client.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

func urlErrorWrap(method string, u *url.URL, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	return &url.Error{
		Op:  urlErrorOp(method),
		URL: u.String(),
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
