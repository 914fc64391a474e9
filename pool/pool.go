// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultIdleThreshold is the idle duration after which an unused
// session becomes eligible for eviction by the background sweep.
const DefaultIdleThreshold = 5 * time.Minute

// Options configures a Pool given to New.
type Options struct {
	// Factory constructs the transport handle for a new session. It
	// may not be nil.
	Factory Factory
	// IdleThreshold is the idle duration after which a session is
	// evicted. Zero means DefaultIdleThreshold.
	IdleThreshold time.Duration
	// Logger receives best-effort teardown and eviction diagnostics.
	// If Logger is nil, the logrus standard logger is used.
	Logger logrus.FieldLogger
}

// A Pool is a keyed cache of transport sessions. Each distinct Config
// maps to at most one live Session, constructed on first use. A Pool
// must be created with New and is safe for concurrent use by multiple
// goroutines.
type Pool struct {
	factory       Factory
	idleThreshold time.Duration
	logger        logrus.FieldLogger

	// lock guards every field below it, plus the counters on each
	// Session. Critical sections are short and never overlap I/O.
	lock         sync.Mutex
	sessions     map[Config]*Session
	draining     map[*Session]struct{}
	sweep        *sweeper
	shutdownC    chan struct{}
	shuttingDown bool
}

// New returns an empty Pool. The idle sweep starts lazily with the
// first session.
func New(opts Options) *Pool {
	if opts.Factory == nil {
		panic("conduit/pool: nil factory")
	}
	threshold := opts.IdleThreshold
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pool{
		factory:       opts.Factory,
		idleThreshold: threshold,
		logger:        logger,
		sessions:      make(map[Config]*Session),
		draining:      make(map[*Session]struct{}),
	}
}

// Acquire returns the live session for cfg, constructing one if none
// exists, and marks one operation active on it. Lookup, creation, and
// the active-operation increment happen in a single critical section,
// so the idle sweep can never evict a session between lookup and use.
//
// Every successful Acquire must be paired with exactly one Release.
func (p *Pool) Acquire(cfg Config) *Session {
	p.lock.Lock()
	defer p.lock.Unlock()
	s := p.sessions[cfg]
	if s == nil {
		s = &Session{transport: p.factory(cfg), cfg: cfg}
		p.sessions[cfg] = s
		if p.sweep == nil && !p.shuttingDown {
			p.sweep = startSweeper(p, p.idleThreshold)
		}
	}
	s.activeOps++
	s.idleSince = time.Time{}
	return s
}

// Release marks one operation finished on s. When the last active
// operation finishes the session's idle clock starts. If the pool is
// shutting down, a session going idle is invalidated immediately so
// the shutdown can complete.
func (p *Pool) Release(s *Session) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if s.activeOps <= 0 {
		panic("conduit/pool: release of session with no active operations")
	}
	s.activeOps--
	if s.activeOps == 0 {
		s.idleSince = time.Now()
		if p.shuttingDown {
			p.invalidateLocked(s)
		}
	}
}

// invalidateLocked removes s from the live map, moves it to the
// draining set, and tears its transport down asynchronously. The
// caller must hold the pool lock. New acquires of the same
// configuration construct a fresh session and never observe s again.
func (p *Pool) invalidateLocked(s *Session) {
	if _, draining := p.draining[s]; draining {
		return
	}
	if p.sessions[s.cfg] == s {
		delete(p.sessions, s.cfg)
	}
	p.draining[s] = struct{}{}
	go p.teardown(s)
}

func (p *Pool) teardown(s *Session) {
	// Teardown failures are best-effort: they must not block unrelated
	// requests or keep the pool from reporting itself drained.
	if err := s.transport.Close(); err != nil {
		p.logger.WithError(err).Warn("conduit/pool: transport teardown failed")
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.draining, s)
	p.notifyIfDrainedLocked()
}

func (p *Pool) notifyIfDrainedLocked() {
	if p.shutdownC != nil && len(p.sessions) == 0 && len(p.draining) == 0 {
		close(p.shutdownC)
		p.shutdownC = nil
	}
}

// Shutdown invalidates every pooled session and blocks until all of
// them, and any already draining, have finished tearing down, or until
// ctx is done. A pool that is already empty shuts down immediately.
// Sessions still serving in-flight operations are invalidated as they
// go idle.
//
// After Shutdown returns nil, the pool may be used again; a later
// Acquire restarts the idle sweep.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.lock.Lock()
	if p.sweep != nil {
		p.sweep.stop()
		p.sweep = nil
	}
	if len(p.sessions) == 0 && len(p.draining) == 0 {
		p.shuttingDown = false
		p.lock.Unlock()
		return nil
	}
	p.shuttingDown = true
	if p.shutdownC == nil {
		p.shutdownC = make(chan struct{})
	}
	done := p.shutdownC
	snapshot := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		snapshot = append(snapshot, s)
	}
	for _, s := range snapshot {
		if s.activeOps == 0 {
			p.invalidateLocked(s)
		}
	}
	p.lock.Unlock()

	select {
	case <-done:
		p.lock.Lock()
		p.shuttingDown = false
		p.lock.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats is a point-in-time snapshot of pool occupancy.
type Stats struct {
	// Live is the number of sessions available for acquisition.
	Live int
	// Draining is the number of invalidated sessions whose transports
	// are still tearing down.
	Draining int
	// ActiveOperations is the total number of in-flight operations
	// across all live sessions.
	ActiveOperations int
}

// Stats returns a snapshot of the pool's occupancy.
func (p *Pool) Stats() Stats {
	p.lock.Lock()
	defer p.lock.Unlock()
	stats := Stats{
		Live:     len(p.sessions),
		Draining: len(p.draining),
	}
	for _, s := range p.sessions {
		stats.ActiveOperations += s.activeOps
	}
	return stats
}
