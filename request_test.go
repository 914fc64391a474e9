// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	t.Run("empty method means GET", func(t *testing.T) {
		req, err := NewRequest("", "http://example.com")
		require.NoError(t, err)
		assert.Equal(t, "GET", req.Method)
	})
	t.Run("invalid method", func(t *testing.T) {
		testCases := []string{"GET ", "bad method", "smells/bad", "ördered"}
		for _, method := range testCases {
			t.Run(method, func(t *testing.T) {
				req, err := NewRequest(method, "http://example.com")
				assert.Nil(t, req)
				assert.EqualError(t, err, `conduit: invalid method "`+method+`"`)
			})
		}
	})
	t.Run("invalid url", func(t *testing.T) {
		req, err := NewRequest("GET", "::no.scheme")
		assert.Nil(t, req)
		assert.Error(t, err)
	})
	t.Run("empty port stripped", func(t *testing.T) {
		req, err := NewRequest("GET", "http://example.com:/foo")
		require.NoError(t, err)
		assert.Equal(t, "example.com", req.URL.Host)
	})
	t.Run("fields", func(t *testing.T) {
		req, err := NewRequest("PUT", "https://example.com:8443/x?y=z")
		require.NoError(t, err)
		assert.Equal(t, "PUT", req.Method)
		assert.Equal(t, "example.com:8443", req.Host)
		assert.NotNil(t, req.Header)
		assert.False(t, req.Close)
	})
}

func TestRequest_Clone(t *testing.T) {
	req, err := NewRequest("POST", "http://example.com/a")
	require.NoError(t, err)
	req.Header.Set("X-Foo", "bar")

	req2 := req.Clone()
	require.NotSame(t, req, req2)
	require.NotSame(t, req.URL, req2.URL)
	assert.Equal(t, req.URL, req2.URL)

	req2.URL.Path = "/b"
	req2.Header.Set("X-Foo", "baz")
	assert.Equal(t, "/a", req.URL.Path)
	assert.Equal(t, "bar", req.Header.Get("X-Foo"))
}

func TestRequest_AddCookie(t *testing.T) {
	req, err := NewRequest("GET", "http://example.com")
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "a", Value: "1"})
	assert.Equal(t, "a=1", req.Header.Get("Cookie"))
	req.AddCookie(&http.Cookie{Name: "b", Value: "2"})
	assert.Equal(t, "a=1; b=2", req.Header.Get("Cookie"))
}

func TestRequest_SetBasicAuth(t *testing.T) {
	req, err := NewRequest("GET", "http://example.com")
	require.NoError(t, err)
	req.SetBasicAuth("Aladdin", "open sesame")
	assert.Equal(t, "Basic QWxhZGRpbjpvcGVuIHNlc2FtZQ==", req.Header.Get("Authorization"))
}
