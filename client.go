// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gogama/conduit/body"
	"github.com/gogama/conduit/pool"
	"github.com/gogama/conduit/transport"
)

// A ResponseHandler consumes the outcome of a Perform call: the
// response header plus a concluding reader over the response body. The
// reader is valid only until the handler returns; the handler's error,
// if any, becomes the error of the Perform call.
type ResponseHandler func(resp *Response, b *BodyReader) error

var emptyHandlers = HandlerGroup{}

// A Client executes logical HTTP requests over a pool of cached
// transport sessions. Its zero value is a valid configuration.
//
// The zero value client builds sessions with the default transport
// (package transport), evicts sessions after pool.DefaultIdleThreshold
// of idleness, runs no event handlers, and logs through the logrus
// standard logger.
//
// Sessions are expensive, so Client instances should be reused instead
// of created per request. Client is safe for concurrent use by
// multiple goroutines.
//
// A Client is higher-level than a pool.Transport. The transport is
// responsible for the wire-level details of speaking HTTP and TLS,
// while Client manages the lifecycle around it: it caches one session
// per effective connection configuration, streams request bodies
// described by a body.Descriptor, consults the caller's redirect,
// trust, and client-certificate policies, and guarantees the session
// is released on every exit path, including error and cancellation.
type Client struct {
	// Factory constructs the transport handle for a new session.
	//
	// If Factory is nil, transport.New is used.
	Factory pool.Factory
	// IdleThreshold is the idle duration after which an unused session
	// is evicted.
	//
	// If IdleThreshold is zero, pool.DefaultIdleThreshold is used.
	IdleThreshold time.Duration
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during a Perform call.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Logger receives best-effort diagnostics from the session pool.
	//
	// If Logger is nil, the logrus standard logger is used.
	Logger logrus.FieldLogger

	initOnce sync.Once
	pool     *pool.Pool
}

func (c *Client) sessions() *pool.Pool {
	c.initOnce.Do(func() {
		factory := c.Factory
		if factory == nil {
			factory = transport.New
		}
		c.pool = pool.New(pool.Options{
			Factory:       factory,
			IdleThreshold: c.IdleThreshold,
			Logger:        c.Logger,
		})
	})
	return c.pool
}

// PoolStats returns a snapshot of the client's session pool occupancy.
// This is useful for verifying session reuse and for monitoring.
func (c *Client) PoolStats() pool.Stats {
	return c.sessions().Stats()
}

// Shutdown tears down the client's session pool and blocks until every
// session has finished invalidating, or until ctx is done. A client
// whose pool is empty shuts down immediately.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.sessions().Shutdown(ctx)
}

// Perform executes a logical HTTP request and delivers its outcome to
// handler.
//
// Perform acquires the pooled session for the connection configuration
// derived from opts (creating one if needed), sends the request with
// desc's bytes streamed as the request body, and waits until the
// transport delivers a response header or ctx is cancelled. The
// session is released exactly once on every exit path, so cancellation
// and errors never leak the underlying transport.
//
// desc may be nil for a bodyless request. opts may be nil, meaning the
// zero RequestOptions. When a response header arrives, handler is
// invoked with the header and a concluding reader over the response
// body; handler's return value becomes Perform's return value.
//
// Redirect responses are not followed automatically. If opts carries a
// RedirectPolicy and it returns Follow, Perform reissues the call with
// the synthesized follow-up request, reusing desc only if its kind
// permits replay; following a redirect with a NonRestartable body
// fails with body.ErrRestartingNonRestartable without touching the
// network again. Without a policy, or on Deliver, the redirect
// response itself is handed to handler.
//
// Transport and cancellation failures are returned as *url.Error, in
// the manner of the standard HTTP client. Cancellation is detectable
// with IsCancelled.
func (c *Client) Perform(ctx context.Context, req *Request, desc *body.Descriptor, opts *RequestOptions, handler ResponseHandler) error {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	if req == nil {
		panic("conduit: nil request")
	}
	if req.URL == nil {
		panic("conduit: nil request URL")
	}
	if handler == nil {
		panic("conduit: nil response handler")
	}
	if opts == nil {
		opts = &RequestOptions{}
	}
	handlers := c.Handlers
	if handlers == nil {
		handlers = &emptyHandlers
	}

	x := &Exchange{Request: req, Options: opts}
	handlers.run(BeforePerform, x)
	err := c.perform(ctx, x, desc, handlers, handler)
	x.Err = err
	handlers.run(AfterPerform, x)
	return err
}

// perform runs one redirect hop of a Perform call. A followed redirect
// recurses with the synthesized request; each hop acquires and
// releases the session independently so the active-operation counter
// stays accurate hop by hop.
func (c *Client) perform(ctx context.Context, x *Exchange, desc *body.Descriptor, handlers *HandlerGroup, handler ResponseHandler) error {
	sessions := c.sessions()
	s := sessions.Acquire(x.Options.poolConfig())
	defer sessions.Release(s)

	hreq, err := buildRequest(ctx, x.Request, desc, x.Options)
	if err != nil {
		// Body protocol misuse: fail synchronously, without touching
		// the network.
		return err
	}
	x.HTTPRequest = hreq
	handlers.run(BeforeSend, x)

	hresp, err := roundTrip(ctx, s.Transport(), hreq)
	if err != nil {
		return urlErrorWrap(x.Request.Method, x.Request.URL, err)
	}

	resp, err := convertResponse(hresp)
	if err != nil {
		_ = hresp.Body.Close()
		return err
	}
	x.Response = resp

	if x.Options.Redirect != nil && isRedirect(hresp.StatusCode) {
		return c.redirect(ctx, x, desc, handlers, handler, hresp, resp)
	}

	defer handlers.run(AfterResponse, x)
	reader := newBodyReader(hresp)
	defer reader.Close()
	return handler(resp, reader)
}

func (c *Client) redirect(ctx context.Context, x *Exchange, desc *body.Descriptor, handlers *HandlerGroup, handler ResponseHandler, hresp *http.Response, resp *Response) error {
	next, keepBody, err := redirectRequest(x.Request, hresp)
	if err != nil {
		_ = hresp.Body.Close()
		return err
	}
	if x.Options.Redirect.Decide(resp, next) != Follow {
		defer handlers.run(AfterResponse, x)
		reader := newBodyReader(hresp)
		defer reader.Close()
		return handler(resp, reader)
	}

	// The redirect body is discarded, but the hop's post-response
	// handlers (e.g. cookie capture) still run before the next hop.
	_ = hresp.Body.Close()
	handlers.run(AfterResponse, x)

	if !keepBody {
		desc = nil
	}
	if desc != nil && !desc.CanRestart() {
		return body.ErrRestartingNonRestartable
	}
	x.Request = next
	x.Response = nil
	x.HTTPRequest = nil
	x.Hop++
	return c.perform(ctx, x, desc, handlers, handler)
}

// buildRequest converts a logical request plus body descriptor into
// the transport-level request for one hop. Per-request trust and
// client-certificate hooks are attached to the request context for the
// transport to consult at handshake time.
func buildRequest(ctx context.Context, req *Request, desc *body.Descriptor, opts *RequestOptions) (*http.Request, error) {
	if opts.Trust != nil || opts.ClientCertificate != nil {
		ctx = pool.WithHooks(ctx, &pool.Hooks{
			Trust:             opts.Trust,
			ClientCertificate: opts.ClientCertificate,
		})
	}
	hreq := &http.Request{
		Method:     req.methodOrGet(),
		URL:        req.URL,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     req.Header.Clone(),
		Host:       req.Host,
		Close:      req.Close,
	}
	if hreq.Header == nil {
		hreq.Header = make(http.Header)
	}
	hreq = hreq.WithContext(ctx)

	if desc == nil {
		return hreq, nil
	}
	stream, err := desc.Stream(0)
	if err != nil {
		return nil, err
	}
	if n := desc.Len(); n >= 0 {
		hreq.ContentLength = n
	}
	if keys := desc.TrailerKeys(); len(keys) > 0 {
		hreq.Trailer = make(http.Header, len(keys))
		for _, k := range keys {
			hreq.Trailer[http.CanonicalHeaderKey(k)] = nil
		}
	}
	hreq.Body = streamBody(stream, hreq.Trailer)
	if desc.CanRestart() {
		hreq.GetBody = func() (io.ReadCloser, error) {
			st, err := desc.Stream(0)
			if err != nil {
				return nil, err
			}
			// net/http replays on the same request, so the trailer
			// destination is unchanged.
			return streamBody(st, hreq.Trailer), nil
		}
	}
	return hreq, nil
}

// streamBody runs the body production concurrently with the round
// trip: the transport reads from the pipe while the descriptor's
// stream writes into it. A write failure propagates through the pipe
// and aborts the attempt. trailer is the outgoing request's declared
// trailer map, which receives the stream's trailer values once the
// body is fully produced.
func streamBody(stream *body.Stream, trailer http.Header) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		if _, err := stream.WriteTo(pw); err != nil {
			pw.CloseWithError(err)
			return
		}
		// Trailer values become visible to the transport only after
		// it has consumed the body to EOF, which the pipe close below
		// sequences after these writes.
		for k, v := range stream.Trailer() {
			ck := http.CanonicalHeaderKey(k)
			if _, declared := trailer[ck]; declared {
				trailer[ck] = v
			}
		}
		_ = pw.Close()
	}()
	return pr
}

// roundTrip issues the transport round trip in its own goroutine and
// waits for a response header or cancellation, whichever comes first.
// On cancellation the in-flight transport operation is aborted
// explicitly and any late response is discarded, so the caller never
// observes partial results.
func roundTrip(ctx context.Context, t pool.Transport, hreq *http.Request) (*http.Response, error) {
	type result struct {
		resp *http.Response
		err  error
	}
	resultC := make(chan result, 1)
	go func() {
		resp, err := t.RoundTrip(hreq)
		resultC <- result{resp: resp, err: err}
	}()

	select {
	case r := <-resultC:
		if r.err != nil {
			return nil, r.err
		}
		if r.resp == nil {
			return nil, &ResponseConversionError{Reason: "transport returned neither response nor error"}
		}
		return r.resp, nil
	case <-ctx.Done():
		if canceller, ok := t.(pool.Canceller); ok {
			canceller.CancelRequest(hreq)
		}
		if hreq.Body != nil {
			// Unblocks a body writer stuck on the pipe.
			_ = hreq.Body.Close()
		}
		go func() {
			if r := <-resultC; r.resp != nil {
				_ = r.resp.Body.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
