// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pool

import "time"

// A Session is one pooled, expensive transport handle reused across
// requests sharing a configuration. It is created lazily by the Pool
// on the first Acquire of its configuration and destroyed either by
// the idle sweep or by pool shutdown.
//
// A Session is exclusively owned by its Pool. Callers hold it only
// between a matched Acquire and Release pair.
type Session struct {
	transport Transport
	cfg       Config

	// Guarded by the owning pool's lock. idleSince is non-zero iff
	// activeOps is zero.
	activeOps int
	idleSince time.Time
}

// Transport returns the session's underlying transport handle. The
// handle remains valid until the session is released: a released
// session may be invalidated by the idle sweep at any moment.
func (s *Session) Transport() Transport {
	return s.transport
}

// Config returns the configuration the session is keyed by.
func (s *Session) Config() Config {
	return s.cfg
}

// idleDuration reports how long the session has been idle as of now.
// It returns zero for a session with in-flight operations. Callers
// must hold the owning pool's lock.
func (s *Session) idleDuration(now time.Time) time.Duration {
	if s.activeOps > 0 {
		return 0
	}
	return now.Sub(s.idleSince)
}
