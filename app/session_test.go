package app

import (
	"testing"
	"time"
)

func TestSession_BasicLifecycle(t *testing.T) {
	s := NewSession()
	base := time.Unix(0, 0)

	// Start at t0 and run for 5s.
	s.OnTick(true, base)
	s.OnTick(true, base.Add(5*time.Second))
	session, total := s.Values()
	if session != 5*time.Second || total != 5*time.Second {
		t.Fatalf("expected 5s session & total; got session=%v total=%v", session, total)
	}

	// Stop at 5s, then idle.
	s.OnTick(false, base.Add(5*time.Second))
	s.OnTick(false, base.Add(7*time.Second))
	session, total = s.Values()
	if session != 5*time.Second || total != 5*time.Second {
		t.Fatalf("idle tick should not change durations; got session=%v total=%v", session, total)
	}

	// Second session at 10s lasting 3s.
	s.OnTick(true, base.Add(10*time.Second))
	s.OnTick(true, base.Add(13*time.Second))
	session, total = s.Values()
	if session != 3*time.Second || total != 8*time.Second {
		t.Fatalf("expected session=3s total=8s; got session=%v total=%v", session, total)
	}
}

func TestSession_Counts(t *testing.T) {
	s := NewSession()
	s.RecordFrame(true)
	s.RecordFrame(false)
	s.RecordFrame(true)
	frames, matched := s.Counts()
	if frames != 3 || matched != 2 {
		t.Fatalf("expected 3/2, got %d/%d", frames, matched)
	}
}

func TestSession_NilSafe(t *testing.T) {
	var s *Session
	s.OnTick(true, time.Now())
	s.RecordFrame(true)
	if a, b := s.Values(); a != 0 || b != 0 {
		t.Fatalf("nil session returned durations")
	}
}
