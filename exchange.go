// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"net/http"
)

// An Exchange represents the state of a single Perform call as seen by
// event handlers.
//
// The exchange is updated as the call progresses, for example when a
// redirect hop starts or when the response header becomes available.
// Handlers may stash their own data on an Exchange using SetValue and
// read it back with Value, but should treat the exported fields as
// read-only except where an event's documentation says otherwise.
type Exchange struct {
	// Request is the logical request for the current hop. On a
	// redirect follow it is replaced by the synthesized follow-up
	// request.
	Request *Request

	// Options is the options bundle the Perform call was made with.
	// It is never nil.
	Options *RequestOptions

	// Hop is the zero-based redirect hop number: zero for the original
	// request, one for the first followed redirect, and so on.
	Hop int

	// HTTPRequest is the transport-level request for the current hop.
	// It is nil until the hop's request has been built.
	HTTPRequest *http.Request

	// Response is the logical response header for the most recent hop,
	// or nil before one is available.
	Response *Response

	// Err is the terminal error of the Perform call. It is nil until
	// the call's outcome is known, and is only meaningful during the
	// AfterPerform event.
	Err error

	// data carries arbitrary handler data; see SetValue and Value.
	data context.Context
}

// SetValue allows event handlers to store arbitrary data on the
// exchange.
//
// The key must follow the same rules as the key parameter in
// context.WithValue: it may not be nil, it must be comparable, and it
// should not be of a built-in type, to avoid collisions between
// handlers from different packages.
func (x *Exchange) SetValue(key, value interface{}) {
	ctx := x.data
	if ctx == nil {
		ctx = context.Background()
	}

	x.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this exchange for key,
// or nil if there is no value associated with key.
func (x *Exchange) Value(key interface{}) interface{} {
	ctx := x.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
