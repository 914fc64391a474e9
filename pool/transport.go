// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"context"
	"crypto/tls"
	"net/http"
)

// A Transport is one opaque, expensive handle capable of carrying HTTP
// requests, for example a connection-caching *http.Transport. The pool
// treats it as a black box: it is constructed by a Factory on first
// use of a configuration and torn down with Close when the session is
// invalidated.
//
// Implementations of Transport must be safe for concurrent use by
// multiple goroutines.
type Transport interface {
	// RoundTrip executes a single HTTP transaction. It must honor
	// cancellation of the request's context.
	RoundTrip(r *http.Request) (*http.Response, error)
	// Close tears the handle down, releasing any underlying network
	// resources. In-flight round trips may be interrupted.
	Close() error
}

// A Canceller is an optional interface a Transport may implement to
// support explicit abortion of an in-flight round trip, for transports
// that do not honor request context cancellation on their own.
type Canceller interface {
	CancelRequest(r *http.Request)
}

// A Factory constructs the Transport for a configuration. Construction
// is assumed infallible at this layer: a factory that cannot usefully
// build a handle should return one whose first round trip reports the
// problem.
type Factory func(cfg Config) Transport

// Config is the effective connection configuration a Session is keyed
// by. Two requests whose derived configurations are equal resolve to
// the same pooled Session. The zero value is a valid configuration.
//
// Config is a comparable value type used directly as a map key; do not
// add incomparable fields.
type Config struct {
	// MaxConnsPerHost bounds the number of concurrent underlying
	// connections per host. Zero means no bound.
	MaxConnsPerHost int

	// TLSMinVersion and TLSMaxVersion bound the TLS protocol versions
	// acceptable on the session's connections, using the tls.VersionXXX
	// constants. Zero means the transport default.
	TLSMinVersion uint16
	TLSMaxVersion uint16

	// ProhibitExpensive and ProhibitConstrained exclude network paths
	// the platform reports as expensive (for example cellular) or
	// constrained (for example in data-saver mode). They participate in
	// session keying even on platforms whose transports cannot enforce
	// them.
	ProhibitExpensive   bool
	ProhibitConstrained bool
}

// A TrustDecision is a trust policy's verdict on a server's TLS
// identity.
type TrustDecision int

const (
	// TrustUseDefault defers to the transport's default certificate
	// verification.
	TrustUseDefault TrustDecision = iota
	// TrustAllow accepts the presented identity without further
	// verification.
	TrustAllow
	// TrustDeny rejects the presented identity and fails the
	// handshake.
	TrustDeny
)

// A TrustPolicy evaluates a server's TLS identity when the transport
// signals a trust challenge during the handshake.
//
// Implementations of TrustPolicy must be safe for concurrent use by
// multiple goroutines.
type TrustPolicy interface {
	Evaluate(state tls.ConnectionState) TrustDecision
}

// The TrustPolicyFunc type is an adapter to allow the use of ordinary
// functions as trust policies.
type TrustPolicyFunc func(state tls.ConnectionState) TrustDecision

// Evaluate calls f(state).
func (f TrustPolicyFunc) Evaluate(state tls.ConnectionState) TrustDecision {
	return f(state)
}

// A CertificateProvider answers a client-certificate challenge from
// the server. It receives the DER-encoded distinguished names of the
// acceptable certificate authorities, and returns the identity to
// present, or nil to proceed without one.
//
// Implementations of CertificateProvider must be safe for concurrent
// use by multiple goroutines.
type CertificateProvider interface {
	Provide(acceptableIssuers [][]byte) (*tls.Certificate, error)
}

// The CertificateProviderFunc type is an adapter to allow the use of
// ordinary functions as certificate providers.
type CertificateProviderFunc func(acceptableIssuers [][]byte) (*tls.Certificate, error)

// Provide calls f(acceptableIssuers).
func (f CertificateProviderFunc) Provide(acceptableIssuers [][]byte) (*tls.Certificate, error) {
	return f(acceptableIssuers)
}

// Hooks bundles the per-request policy callbacks a Transport consults
// when the lower protocol layers signal a challenge. Either field may
// be nil, meaning default behavior.
type Hooks struct {
	Trust             TrustPolicy
	ClientCertificate CertificateProvider
}

type hooksKey struct{}

// WithHooks returns a copy of ctx carrying h. Transports retrieve the
// hooks with HooksFrom at handshake time, which is how per-request
// trust and client-certificate policy reaches a shared transport
// handle.
func WithHooks(ctx context.Context, h *Hooks) context.Context {
	return context.WithValue(ctx, hooksKey{}, h)
}

// HooksFrom returns the Hooks carried by ctx, or nil if WithHooks was
// never applied.
func HooksFrom(ctx context.Context) *Hooks {
	h, _ := ctx.Value(hooksKey{}).(*Hooks)
	return h
}
