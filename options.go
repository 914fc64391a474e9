// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"github.com/gogama/conduit/pool"
)

// A RedirectDecision is a redirect policy's verdict on a redirect
// response.
type RedirectDecision int

const (
	// Deliver hands the redirect response itself to the response
	// handler, without following it.
	Deliver RedirectDecision = iota
	// Follow reissues the call with the synthesized follow-up request.
	Follow
)

// A RedirectPolicy decides whether a redirect response should be
// followed or delivered. It receives the redirect response header and
// the follow-up request that would be sent, which it may modify before
// returning Follow.
//
// The pipeline imposes no redirect-hop cap of its own: a policy that
// unconditionally returns Follow against a server that redirects in a
// cycle will loop until the call's context is cancelled. Bound the hop
// count in the policy, for example by counting calls or inspecting
// Exchange.Hop from a handler.
//
// Implementations of RedirectPolicy must be safe for concurrent use by
// multiple goroutines.
type RedirectPolicy interface {
	Decide(resp *Response, next *Request) RedirectDecision
}

// The RedirectPolicyFunc type is an adapter to allow the use of
// ordinary functions as redirect policies.
type RedirectPolicyFunc func(resp *Response, next *Request) RedirectDecision

// Decide calls f(resp, next).
func (f RedirectPolicyFunc) Decide(resp *Response, next *Request) RedirectDecision {
	return f(resp, next)
}

// FollowAll is a redirect policy that follows every redirect. Use it
// only against servers trusted not to redirect in a cycle, or with a
// deadline on the call's context.
var FollowAll RedirectPolicy = RedirectPolicyFunc(func(_ *Response, _ *Request) RedirectDecision {
	return Follow
})

// RequestOptions bundles the per-request configuration of a Perform
// call. The zero value is a valid configuration: no redirect
// following, default server trust, no client certificate, and default
// connection settings. A RequestOptions is immutable for the duration
// of the call that receives it.
type RequestOptions struct {
	// TLSMinVersion and TLSMaxVersion bound the TLS protocol versions
	// acceptable for this request, using the tls.VersionXXX constants.
	// Zero means the transport default. Requests with equal bounds
	// (and equal remaining connection settings) share a pooled
	// session.
	TLSMinVersion uint16
	TLSMaxVersion uint16

	// MaxConnsPerHost bounds the concurrent underlying connections per
	// host on the session serving this request. Zero means no bound.
	MaxConnsPerHost int

	// ProhibitExpensive and ProhibitConstrained exclude network paths
	// the platform reports as expensive or constrained.
	ProhibitExpensive   bool
	ProhibitConstrained bool

	// Redirect decides whether redirect responses are followed. If
	// Redirect is nil, redirect responses are delivered to the
	// response handler like any other response.
	Redirect RedirectPolicy

	// Trust evaluates the server's TLS identity when the transport
	// signals a trust challenge. If Trust is nil, the transport's
	// default verification is used.
	Trust pool.TrustPolicy

	// ClientCertificate answers a client-certificate challenge from
	// the server. If ClientCertificate is nil, no identity is
	// presented.
	ClientCertificate pool.CertificateProvider
}

// poolConfig derives the effective connection configuration, which
// keys session sharing. Policy callbacks deliberately do not
// participate: they are call-scoped and travel to the transport via
// the request context.
func (o *RequestOptions) poolConfig() pool.Config {
	return pool.Config{
		MaxConnsPerHost:     o.MaxConnsPerHost,
		TLSMinVersion:       o.TLSMinVersion,
		TLSMaxVersion:       o.TLSMaxVersion,
		ProhibitExpensive:   o.ProhibitExpensive,
		ProhibitConstrained: o.ProhibitConstrained,
	}
}
