// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transport provides the default pool.Transport implementation,
// built on the standard net/http transport with HTTP/2 enabled via
// golang.org/x/net/http2.
//
// Per-request trust and client-certificate policy travels in the
// request context (see pool.WithHooks) and is consulted from the TLS
// handshake callbacks, so one shared transport handle can serve
// requests with differing policies.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/gogama/conduit/pool"
)

// ErrTrustDenied is the handshake error produced when a trust policy
// returns pool.TrustDeny for a server's TLS identity.
var ErrTrustDenied = errors.New("conduit/transport: server trust denied by policy")

const (
	dialTimeout   = 30 * time.Second
	dialKeepAlive = 30 * time.Second
)

// New constructs the default transport handle for cfg. It satisfies
// pool.Factory.
//
// The returned transport caches connections per host, bounds them by
// cfg.MaxConnsPerHost, applies cfg's TLS version bounds, and never
// follows redirects on its own. cfg's network-cost prohibitions are
// carried for session keying but not enforced, as the portable socket
// API offers no cost signal.
func New(cfg pool.Config) pool.Transport {
	inner := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: dialKeepAlive,
		}).DialContext,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: cfg.TLSMinVersion,
			MaxVersion: cfg.TLSMaxVersion,
		},
	}
	t := &netTransport{inner: inner}
	inner.DialTLSContext = t.dialTLS
	// Registers the h2 round tripper and adds "h2" to the base TLS
	// config's NextProtos, which dialTLS clones per connection.
	if err := http2.ConfigureTransport(inner); err != nil {
		// Only reachable if the transport were already h2-configured.
		panic(err)
	}
	return t
}

type netTransport struct {
	inner *http.Transport
}

func (t *netTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return t.inner.RoundTrip(r)
}

func (t *netTransport) CancelRequest(r *http.Request) {
	type canceller interface {
		CancelRequest(*http.Request)
	}
	if c, ok := http.RoundTripper(t.inner).(canceller); ok {
		c.CancelRequest(r)
	}
}

func (t *netTransport) Close() error {
	t.inner.CloseIdleConnections()
	return nil
}

// dialTLS performs the TLS handshake for one connection, binding the
// hook set carried by ctx, if any, into the handshake callbacks.
func (t *netTransport) dialTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	cfg := t.inner.TLSClientConfig.Clone()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	if h := pool.HooksFrom(ctx); h != nil {
		applyHooks(cfg, h, host)
	}
	d := tls.Dialer{
		NetDialer: &net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: dialKeepAlive,
		},
		Config: cfg,
	}
	return d.DialContext(ctx, network, addr)
}

func applyHooks(cfg *tls.Config, h *pool.Hooks, host string) {
	if h.Trust != nil {
		trust := h.Trust
		// Verification moves into VerifyConnection so the policy sees
		// the full connection state before deciding.
		cfg.InsecureSkipVerify = true
		cfg.VerifyConnection = func(state tls.ConnectionState) error {
			switch trust.Evaluate(state) {
			case pool.TrustAllow:
				return nil
			case pool.TrustDeny:
				return ErrTrustDenied
			default:
				return verifyDefault(host, state)
			}
		}
	}
	if h.ClientCertificate != nil {
		provider := h.ClientCertificate
		cfg.GetClientCertificate = func(info *tls.CertificateRequestInfo) (*tls.Certificate, error) {
			cert, err := provider.Provide(info.AcceptableCAs)
			if err != nil {
				return nil, err
			}
			if cert == nil {
				// The protocol requires a certificate message even
				// when the client declines to present an identity.
				return &tls.Certificate{}, nil
			}
			return cert, nil
		}
	}
}

// verifyDefault reproduces the verification the TLS stack would have
// performed had InsecureSkipVerify not been set: chain building against
// the system roots plus host name checking.
func verifyDefault(host string, state tls.ConnectionState) error {
	if len(state.PeerCertificates) == 0 {
		return errors.New("conduit/transport: server presented no certificate")
	}
	opts := x509.VerifyOptions{
		DNSName:       host,
		Intermediates: x509.NewCertPool(),
	}
	for _, cert := range state.PeerCertificates[1:] {
		opts.Intermediates.AddCert(cert)
	}
	_, err := state.PeerCertificates[0].Verify(opts)
	return err
}
