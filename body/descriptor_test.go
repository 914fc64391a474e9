// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package body

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "NonRestartable", NonRestartable.String())
	assert.Equal(t, "Restartable", Restartable.String())
	assert.Equal(t, "Seekable", Seekable.String())
	assert.Equal(t, "body.Kind(99)", Kind(99).String())
}

func TestRestartableReplay(t *testing.T) {
	d := NewRestartable(5, func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	})
	assert.Equal(t, Restartable, d.Kind())
	assert.Equal(t, int64(5), d.Len())
	assert.True(t, d.CanRestart())
	for i := 0; i < 3; i++ {
		var buf bytes.Buffer
		trailer, err := d.Write(0, &buf)
		require.NoError(t, err, "replay %d", i)
		assert.Nil(t, trailer)
		assert.Equal(t, "hello", buf.String())
	}
}

func TestNonRestartableSingleShot(t *testing.T) {
	d := Reader(strings.NewReader("one shot"))
	assert.Equal(t, NonRestartable, d.Kind())
	assert.Equal(t, int64(-1), d.Len())
	assert.False(t, d.CanRestart())

	var buf bytes.Buffer
	_, err := d.Write(0, &buf)
	require.NoError(t, err)
	assert.Equal(t, "one shot", buf.String())

	_, err = d.Write(0, io.Discard)
	assert.ErrorIs(t, err, ErrRestartingNonRestartable)
}

func TestNonRestartableConsumedByStream(t *testing.T) {
	// Obtaining a stream consumes the descriptor even if the stream is
	// never written.
	d := NewNonRestartable(-1, func(w io.Writer) error { return nil })
	_, err := d.Stream(0)
	require.NoError(t, err)
	_, err = d.Stream(0)
	assert.ErrorIs(t, err, ErrRestartingNonRestartable)
}

func TestNonSeekableOffset(t *testing.T) {
	testCases := []struct {
		name string
		d    *Descriptor
	}{
		{
			name: "NonRestartable",
			d:    NewNonRestartable(-1, func(w io.Writer) error { return nil }),
		},
		{
			name: "Restartable",
			d:    NewRestartable(-1, func(w io.Writer) error { return nil }),
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := testCase.d.Write(1, io.Discard)
			assert.ErrorIs(t, err, ErrSeekingNonSeekable)
			// The failed seek must not consume a NonRestartable body.
			_, err = testCase.d.Write(0, io.Discard)
			assert.NoError(t, err)
		})
	}
}

func TestSeekableOffsets(t *testing.T) {
	d := Bytes([]byte("hello world"))
	assert.Equal(t, Seekable, d.Kind())
	assert.Equal(t, int64(11), d.Len())

	testCases := []struct {
		offset   int64
		expected string
	}{
		{offset: 0, expected: "hello world"},
		{offset: 6, expected: "world"},
		{offset: 11, expected: ""},
	}
	for _, testCase := range testCases {
		var buf bytes.Buffer
		_, err := d.Write(testCase.offset, &buf)
		require.NoError(t, err, "offset %d", testCase.offset)
		assert.Equal(t, testCase.expected, buf.String())
	}

	_, err := d.Write(12, io.Discard)
	assert.ErrorIs(t, err, ErrOffsetBeyondLength)
	_, err = d.Write(-1, io.Discard)
	assert.ErrorIs(t, err, ErrOffsetBeyondLength)
}

func TestString(t *testing.T) {
	d := String("abc")
	var buf bytes.Buffer
	_, err := d.Write(0, &buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", buf.String())
	assert.Equal(t, int64(3), d.Len())
}

func TestReaderClosesCloser(t *testing.T) {
	rc := &recordingCloser{Reader: strings.NewReader("xyz")}
	d := Reader(rc)
	var buf bytes.Buffer
	_, err := d.Write(0, &buf)
	require.NoError(t, err)
	assert.Equal(t, "xyz", buf.String())
	assert.True(t, rc.closed)
}

func TestTrailer(t *testing.T) {
	d := NewRestartable(-1, func(w io.Writer) error {
		_, err := io.WriteString(w, "payload")
		return err
	}).SetTrailer([]string{"X-Checksum"}, func() http.Header {
		return http.Header{"X-Checksum": []string{"abc123"}}
	})
	assert.Equal(t, []string{"X-Checksum"}, d.TrailerKeys())

	s, err := d.Stream(0)
	require.NoError(t, err)
	assert.Nil(t, s.Trailer(), "no trailer before the body is produced")
	n, err := s.WriteTo(io.Discard)
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload")), n)
	assert.Equal(t, "abc123", s.Trailer().Get("X-Checksum"))
}

func TestStreamWriteTwicePanics(t *testing.T) {
	d := Bytes([]byte("x"))
	s, err := d.Stream(0)
	require.NoError(t, err)
	_, err = s.WriteTo(io.Discard)
	require.NoError(t, err)
	assert.Panics(t, func() { _, _ = s.WriteTo(io.Discard) })
}

func TestWriteError(t *testing.T) {
	boom := errors.New("boom")
	d := NewRestartable(-1, func(w io.Writer) error { return boom })
	_, err := d.Write(0, io.Discard)
	assert.ErrorIs(t, err, boom)
}

func TestConstructorPanics(t *testing.T) {
	assert.Panics(t, func() { NewRestartable(0, nil) })
	assert.Panics(t, func() { NewNonRestartable(0, nil) })
	assert.Panics(t, func() { NewSeekable(0, nil) })
	assert.Panics(t, func() { NewRestartable(-2, func(w io.Writer) error { return nil }) })
	assert.Panics(t, func() {
		NewRestartable(0, func(w io.Writer) error { return nil }).SetTrailer(nil, nil)
	})
}

type recordingCloser struct {
	io.Reader
	closed bool
}

func (rc *recordingCloser) Close() error {
	rc.closed = true
	return nil
}
