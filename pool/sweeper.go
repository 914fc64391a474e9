// Copyright 2024 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pool

import "time"

// sweepFactor sets the sweep period relative to the idle threshold. A
// session is therefore evicted at most 1.8 thresholds after it last
// went idle.
const sweepFactor = 0.8

// A sweeper periodically evicts sessions that have been idle longer
// than the threshold. One sweeper runs per pool, started lazily with
// the pool's first session and stopped by pool shutdown. The sweeper
// does not own the pool: the pool owns the sweeper's lifetime through
// the stop channel, and a sweep takes the pool lock only long enough
// to pick out the expired sessions.
type sweeper struct {
	pool   *Pool
	ticker *time.Ticker
	stopC  chan struct{}
}

func startSweeper(p *Pool, threshold time.Duration) *sweeper {
	period := time.Duration(sweepFactor * float64(threshold))
	if period <= 0 {
		period = threshold
	}
	s := &sweeper{
		pool:   p,
		ticker: time.NewTicker(period),
		stopC:  make(chan struct{}),
	}
	go s.loop(threshold)
	return s
}

func (s *sweeper) loop(threshold time.Duration) {
	for {
		select {
		case <-s.ticker.C:
			s.sweepOnce(threshold)
		case <-s.stopC:
			return
		}
	}
}

func (s *sweeper) sweepOnce(threshold time.Duration) {
	now := time.Now()
	p := s.pool
	p.lock.Lock()
	var expired []*Session
	for _, sess := range p.sessions {
		if sess.activeOps == 0 && sess.idleDuration(now) > threshold {
			expired = append(expired, sess)
		}
	}
	for _, sess := range expired {
		p.invalidateLocked(sess)
	}
	p.lock.Unlock()
	if len(expired) > 0 {
		p.logger.WithField("sessions", len(expired)).Debug("conduit/pool: evicted idle sessions")
	}
}

// stop halts the periodic loop without firing further sweeps. stop
// itself needs no locking; its callers happen to hold the pool lock
// because they also clear p.sweep.
func (s *sweeper) stop() {
	s.ticker.Stop()
	close(s.stopC)
}
