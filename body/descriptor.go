// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package body

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// A Kind is the replay capability tag of a Descriptor. The set of kinds
// is closed, so pipeline code may switch over it exhaustively.
type Kind int

const (
	// NonRestartable marks a body whose bytes may be produced at most
	// once, always from offset zero.
	NonRestartable Kind = iota
	// Restartable marks a body whose bytes may be produced any number
	// of times, always from offset zero.
	Restartable
	// Seekable marks a body whose bytes may be produced any number of
	// times from any offset not exceeding the known length.
	Seekable
)

var kindNames = []string{
	"NonRestartable",
	"Restartable",
	"Seekable",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < NonRestartable || k > Seekable {
		return fmt.Sprintf("body.Kind(%d)", int(k))
	}
	return kindNames[int(k)]
}

var (
	// ErrRestartingNonRestartable is returned when a NonRestartable
	// body is asked to produce its bytes a second time.
	ErrRestartingNonRestartable = errors.New("conduit/body: restarting non-restartable body")
	// ErrSeekingNonSeekable is returned when a NonRestartable or
	// Restartable body is asked to produce its bytes from a non-zero
	// offset.
	ErrSeekingNonSeekable = errors.New("conduit/body: seeking non-seekable body")
	// ErrOffsetBeyondLength is returned when a Seekable body is asked
	// to produce its bytes from an offset past its known length.
	ErrOffsetBeyondLength = errors.New("conduit/body: seek offset beyond known body length")
)

// A WriteFunc produces a body's bytes by writing them to w. It is
// supplied by the caller for NonRestartable and Restartable bodies, and
// always produces the body from offset zero.
type WriteFunc func(w io.Writer) error

// A SeekWriteFunc produces a body's bytes from the given offset by
// writing them to w. It is supplied by the caller for Seekable bodies
// and must honor any offset not exceeding the body's known length.
type SeekWriteFunc func(offset int64, w io.Writer) error

// A Descriptor describes how a request body's bytes are produced and
// whether production can be replayed. Construct one with
// NewNonRestartable, NewRestartable, or NewSeekable, or from a concrete
// byte source with Bytes, String, or Reader.
//
// A Descriptor is consumed by a single logical request at a time and
// must not be shared across concurrent requests. The same descriptor
// may be replayed by a redirect or retry of its logical request if its
// Kind permits.
type Descriptor struct {
	kind        Kind
	length      int64
	write       SeekWriteFunc
	trailerKeys []string
	trailer     func() http.Header

	lock  sync.Mutex
	spent bool
}

// NewNonRestartable returns a descriptor for a body that may be
// produced at most once. Pass length -1 if the byte length is unknown;
// a known length seeds the request's length header.
func NewNonRestartable(length int64, fn WriteFunc) *Descriptor {
	return newDescriptor(NonRestartable, length, fn)
}

// NewRestartable returns a descriptor for a body that may be produced
// any number of times, always from byte zero. Pass length -1 if the
// byte length is unknown.
func NewRestartable(length int64, fn WriteFunc) *Descriptor {
	return newDescriptor(Restartable, length, fn)
}

func newDescriptor(k Kind, length int64, fn WriteFunc) *Descriptor {
	if fn == nil {
		panic("conduit/body: nil write func")
	}
	if length < -1 {
		panic("conduit/body: negative body length")
	}
	return &Descriptor{
		kind:   k,
		length: length,
		write: func(_ int64, w io.Writer) error {
			return fn(w)
		},
	}
}

// NewSeekable returns a descriptor for a body that may be produced any
// number of times from any offset. Pass length -1 if the byte length
// is unknown, in which case offsets are not bounds-checked.
func NewSeekable(length int64, fn SeekWriteFunc) *Descriptor {
	if fn == nil {
		panic("conduit/body: nil write func")
	}
	if length < -1 {
		panic("conduit/body: negative body length")
	}
	return &Descriptor{
		kind:   Seekable,
		length: length,
		write:  fn,
	}
}

// Bytes returns a Seekable descriptor producing the contents of b. The
// slice is not copied, so it must not be modified while the descriptor
// is in use.
func Bytes(b []byte) *Descriptor {
	return NewSeekable(int64(len(b)), func(offset int64, w io.Writer) error {
		_, err := w.Write(b[offset:])
		return err
	})
}

// String returns a Seekable descriptor producing the contents of s.
func String(s string) *Descriptor {
	return Bytes([]byte(s))
}

// Reader returns a NonRestartable descriptor of unknown length that
// drains r. If r also implements io.Closer it is closed after the
// body has been produced.
func Reader(r io.Reader) *Descriptor {
	return NewNonRestartable(-1, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		if c, ok := r.(io.Closer); ok {
			if cerr := c.Close(); err == nil {
				err = cerr
			}
		}
		return err
	})
}

// SetTrailer declares the trailer fields the body concludes with. The
// keys announce the trailer names before the first body byte is
// written; fn is consulted for the values once the body has been fully
// produced. SetTrailer returns d to allow chaining off a constructor.
func (d *Descriptor) SetTrailer(keys []string, fn func() http.Header) *Descriptor {
	if fn == nil {
		panic("conduit/body: nil trailer func")
	}
	d.trailerKeys = keys
	d.trailer = fn
	return d
}

// Kind returns the descriptor's replay capability tag.
func (d *Descriptor) Kind() Kind {
	return d.kind
}

// Len returns the body's byte length, or -1 if the length is unknown.
func (d *Descriptor) Len() int64 {
	return d.length
}

// CanRestart indicates whether the body may safely be produced a
// second time, for example to follow a redirect.
func (d *Descriptor) CanRestart() bool {
	return d.kind != NonRestartable
}

// TrailerKeys returns the trailer field names declared with SetTrailer,
// or nil if the body concludes without trailers.
func (d *Descriptor) TrailerKeys() []string {
	return d.trailerKeys
}

// Stream validates offset against the descriptor's capability tag and
// returns a one-shot Stream positioned at offset. For a NonRestartable
// descriptor, a successful Stream call consumes the descriptor: any
// later call fails with ErrRestartingNonRestartable, whether or not
// the returned stream was ever written.
//
// The validation is synchronous and produces no bytes, so pipeline code
// can fail a misused body before touching the network.
func (d *Descriptor) Stream(offset int64) (*Stream, error) {
	switch d.kind {
	case NonRestartable:
		if offset != 0 {
			return nil, ErrSeekingNonSeekable
		}
		d.lock.Lock()
		spent := d.spent
		d.spent = true
		d.lock.Unlock()
		if spent {
			return nil, ErrRestartingNonRestartable
		}
	case Restartable:
		if offset != 0 {
			return nil, ErrSeekingNonSeekable
		}
	case Seekable:
		if offset < 0 || (d.length >= 0 && offset > d.length) {
			return nil, ErrOffsetBeyondLength
		}
	}
	return &Stream{d: d, offset: offset}, nil
}

// Write produces the body from offset into w and returns the body's
// trailers, if any. It is shorthand for Stream followed by WriteTo and
// Trailer.
func (d *Descriptor) Write(offset int64, w io.Writer) (http.Header, error) {
	s, err := d.Stream(offset)
	if err != nil {
		return nil, err
	}
	if _, err = s.WriteTo(w); err != nil {
		return nil, err
	}
	return s.Trailer(), nil
}

// A Stream is an owned, one-shot handle on a single production of a
// body's bytes. It is obtained from Descriptor.Stream, written exactly
// once with WriteTo, and then queried for trailers.
type Stream struct {
	d      *Descriptor
	offset int64
	done   bool
}

// WriteTo produces the body's bytes into w. It must be called exactly
// once per Stream.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	if s.done {
		panic("conduit/body: stream written twice")
	}
	s.done = true
	cw := &countingWriter{w: w}
	err := s.d.write(s.offset, cw)
	return cw.n, err
}

// Trailer returns the body's trailer fields. It returns nil until
// WriteTo has completed, and nil always if the descriptor declares no
// trailers.
func (s *Stream) Trailer() http.Header {
	if !s.done || s.d.trailer == nil {
		return nil
	}
	return s.d.trailer()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
