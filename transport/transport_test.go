// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogama/conduit/pool"
)

func TestNew(t *testing.T) {
	tr := New(pool.Config{TLSMinVersion: tls.VersionTLS12})
	require.NotNil(t, tr)
	_, ok := tr.(pool.Canceller)
	assert.True(t, ok, "default transport supports explicit abort")
	assert.NoError(t, tr.Close())
}

func TestRoundTripPlain(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "plain")
	}))
	defer server.Close()

	tr := New(pool.Config{})
	defer func() { _ = tr.Close() }()

	resp, err := tr.RoundTrip(newGet(t, server.URL))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "plain", string(b))
}

func TestTrustPolicy(t *testing.T) {
	t.Parallel()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	// The test server's certificate is self-signed, so default
	// verification must fail and only an Allow verdict can succeed.
	t.Run("no hooks", func(t *testing.T) {
		tr := New(pool.Config{})
		defer func() { _ = tr.Close() }()
		resp, err := tr.RoundTrip(newGet(t, server.URL))
		require.Error(t, err)
		assert.Nil(t, resp)
	})
	t.Run("use default", func(t *testing.T) {
		tr := New(pool.Config{})
		defer func() { _ = tr.Close() }()
		req := withTrust(newGet(t, server.URL), pool.TrustUseDefault)
		resp, err := tr.RoundTrip(req)
		require.Error(t, err)
		assert.Nil(t, resp)
	})
	t.Run("allow", func(t *testing.T) {
		tr := New(pool.Config{})
		defer func() { _ = tr.Close() }()
		req := withTrust(newGet(t, server.URL), pool.TrustAllow)
		resp, err := tr.RoundTrip(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		require.NotNil(t, resp.TLS)
	})
	t.Run("deny", func(t *testing.T) {
		tr := New(pool.Config{})
		defer func() { _ = tr.Close() }()
		req := withTrust(newGet(t, server.URL), pool.TrustDeny)
		resp, err := tr.RoundTrip(req)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.ErrorContains(t, err, "denied")
	})
}

func TestTrustPolicySeesConnectionState(t *testing.T) {
	t.Parallel()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	var state tls.ConnectionState
	trust := pool.TrustPolicyFunc(func(s tls.ConnectionState) pool.TrustDecision {
		state = s
		return pool.TrustAllow
	})
	tr := New(pool.Config{})
	defer func() { _ = tr.Close() }()
	req := newGet(t, server.URL)
	req = req.WithContext(pool.WithHooks(req.Context(), &pool.Hooks{Trust: trust}))
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.NotEmpty(t, state.PeerCertificates, "policy sees the peer certificate chain")
}

func TestTLSVersionBounds(t *testing.T) {
	t.Parallel()
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.TLS = &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13}
	server.StartTLS()
	defer server.Close()

	// A transport capped below the server's floor cannot handshake.
	tr := New(pool.Config{TLSMaxVersion: tls.VersionTLS12})
	defer func() { _ = tr.Close() }()
	req := withTrust(newGet(t, server.URL), pool.TrustAllow)
	_, err := tr.RoundTrip(req)
	assert.Error(t, err)

	tr13 := New(pool.Config{TLSMinVersion: tls.VersionTLS13})
	defer func() { _ = tr13.Close() }()
	req = withTrust(newGet(t, server.URL), pool.TrustAllow)
	resp, err := tr13.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, uint16(tls.VersionTLS13), resp.TLS.Version)
}

func newGet(t *testing.T, rawURL string) *http.Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return &http.Request{
		Method: "GET",
		URL:    u,
		Header: make(http.Header),
		Host:   u.Host,
	}
}

func withTrust(req *http.Request, decision pool.TrustDecision) *http.Request {
	hooks := &pool.Hooks{
		Trust: pool.TrustPolicyFunc(func(_ tls.ConnectionState) pool.TrustDecision {
			return decision
		}),
	}
	return req.WithContext(pool.WithHooks(req.Context(), hooks))
}
