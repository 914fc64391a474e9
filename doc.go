// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package conduit is a client-side HTTP execution layer: it caches
expensive transport sessions keyed by effective connection
configuration, streams request bodies with declared replay capability,
and delivers response headers with concluding body readers, tearing
down sessions that go idle.

Create a Client to begin making requests.

	client := &conduit.Client{}
	req, err := conduit.NewRequest("GET", "https://www.example.com")
	...
	err = client.Perform(ctx, req, nil, nil, func(resp *conduit.Response, b *conduit.BodyReader) error {
		buf, err := b.Collect(1 << 20)
		...
	})

Requests with a body declare how replayable the body is using package
body, so the pipeline can decide whether the body may safely be sent
again, for example after a redirect:

	desc := body.String(`{"hello":"world"}`) // Seekable: replay is always safe
	desc := body.Reader(file)                // NonRestartable: one shot only

Per-request policy travels in a RequestOptions bundle: TLS version
bounds (which participate in session keying), a redirect policy, a
server trust policy, and a client-certificate provider:

	opts := &conduit.RequestOptions{
		TLSMinVersion: tls.VersionTLS12,
		Redirect:      conduit.FollowAll,
	}
	err = client.Perform(ctx, req, desc, opts, handler)

Sessions idle longer than the client's idle threshold are evicted by a
background sweep. For graceful termination, Shutdown blocks until every
session has finished tearing down:

	err = client.Shutdown(ctx)

To hook into the fine-grained details of the pipeline, install a
handler into the appropriate handler chain:

	handlers := &conduit.HandlerGroup{}
	handlers.PushBack(conduit.AfterResponse, conduit.HandlerFunc(
		func(_ conduit.Event, x *conduit.Exchange) {
			log.Printf("hop %d: %d from %s", x.Hop, x.Response.StatusCode, x.Request.URL)
		}),
	)
	client := &conduit.Client{Handlers: handlers}

The wire-level work — HTTP framing, TLS handshakes, connection caching
within a session — is delegated to an opaque pool.Transport. The
default implementation in package transport is built on net/http with
HTTP/2 enabled; supply a custom Factory to substitute another.
*/
package conduit
