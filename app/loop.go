package app

import (
	"context"
	"time"

	"github.com/soocke/planetrack-go/capture"
)

// Loop drives periodic updates: it ticks the session clock, lets the live
// tracker process the newest frame and logs session totals now and then.
// The zero value is usable; nil parts are skipped.
type Loop struct {
	Session  *Session
	Live     *LiveTracker
	Source   capture.FrameSource
	Interval time.Duration

	OnSessionLog func(session, total time.Duration, frames, matched uint64)

	lastLog time.Time
}

func NewLoop(session *Session, live *LiveTracker, source capture.FrameSource, interval time.Duration) *Loop {
	return &Loop{Session: session, Live: live, Source: source, Interval: interval}
}

// Tick performs one update at now.
func (l *Loop) Tick(now time.Time) {
	if l == nil {
		return
	}
	running := l.Source != nil && l.Source.Running()
	l.Session.OnTick(running, now)
	if l.Live != nil {
		l.Live.ProcessFrame()
	}
	if l.OnSessionLog != nil && now.Sub(l.lastLog) >= sessionLogInterval {
		if !l.lastLog.IsZero() {
			session, total := l.Session.Values()
			frames, matched := l.Session.Counts()
			l.OnSessionLog(session, total, frames, matched)
		}
		l.lastLog = now
	}
}

// Run ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	interval := l.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Session.OnTick(false, time.Now())
			return
		case now := <-t.C:
			l.Tick(now)
		}
	}
}
