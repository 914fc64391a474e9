// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client to extend it with custom
// functionality, for example cookie capture or request signing.
type Event int

const (
	// BeforePerform identifies the event that occurs once per Perform
	// call, before a session is acquired.
	//
	// When Client fires BeforePerform, the exchange carries the
	// logical request and options only.
	BeforePerform Event = iota
	// BeforeSend identifies the event that occurs before each
	// transport-level request is sent, once per redirect hop.
	//
	// When Client fires BeforeSend, the exchange's HTTPRequest field
	// is set to the request that WILL BE sent after all BeforeSend
	// handlers have finished. Handlers may adjust the request's
	// headers, for example to sign it, but should clone reference
	// fields before changing them.
	BeforeSend
	// AfterResponse identifies the event that occurs after a response
	// header has been delivered for a hop, whether the hop's response
	// was handed to the response handler or consumed by a redirect
	// follow. It fires after the response handler returns, regardless
	// of the handler's outcome.
	//
	// When Client fires AfterResponse, the exchange's Response field
	// is set. The response body is no longer readable at this point.
	AfterResponse
	// AfterPerform identifies the event that occurs once per Perform
	// call, after the terminal outcome is known and the session has
	// been released.
	//
	// When Client fires AfterPerform, the exchange's Err field holds
	// the error Perform is about to return, or nil on success.
	AfterPerform
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of event types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforePerform",
	"BeforeSend",
	"AfterResponse",
	"AfterPerform",
}

// Events returns a slice containing all events which can occur during
// a Perform call, in the order in which they would occur.
func Events() []Event {
	return []Event{
		BeforePerform,
		BeforeSend,
		AfterResponse,
		AfterPerform,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
