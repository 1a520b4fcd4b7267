package app

import (
	"sync"
	"time"
)

// Session tracks live capture time and how many frames were tracked and
// matched. The zero value is ready to use and safe for concurrent use.
type Session struct {
	mu                  sync.Mutex
	active              bool
	captureStart        time.Time
	lastSessionDuration time.Duration
	accumulated         time.Duration

	frames  uint64
	matched uint64
}

// NewSession returns a ready-to-use Session.
func NewSession() *Session { return &Session{} }

// OnTick updates durations from the current capture state. Call periodically.
func (s *Session) OnTick(capturing bool, now time.Time) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if capturing {
		if !s.active { // off -> on
			s.active = true
			s.captureStart = now
			s.lastSessionDuration = 0
		}
		s.lastSessionDuration = now.Sub(s.captureStart)
	} else if s.active { // on -> off
		s.lastSessionDuration = now.Sub(s.captureStart)
		s.accumulated += s.lastSessionDuration
		s.active = false
	}
}

// RecordFrame counts one tracked frame.
func (s *Session) RecordFrame(matched bool) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	if matched {
		s.matched++
	}
}

// Values returns the current session duration and the total accumulated
// duration, including the ongoing session.
func (s *Session) Values() (session, total time.Duration) {
	if s == nil {
		return 0, 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session = s.lastSessionDuration
	total = s.accumulated
	if s.active {
		total += session
	}
	return
}

// Counts returns tracked and matched frame totals.
func (s *Session) Counts() (frames, matched uint64) {
	if s == nil {
		return 0, 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames, s.matched
}
