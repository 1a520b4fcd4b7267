package capture

import (
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const statsLogInterval = 5 * time.Second

// Service acquires frames (selection or full screen) at a fixed interval and
// exposes the latest capture alongside instrumentation data. Use NewService
// to construct an instance.
type Service interface {
	FrameSource
	Start()
	Stop()
	SetSelectionProvider(func() *image.Rectangle)
	Stats() Stats
}

type service struct {
	running  atomic.Bool
	latest   atomic.Pointer[FrameSnapshot]
	selFn    atomic.Pointer[func() *image.Rectangle]
	grab     Grabber
	interval time.Duration
	logger   *slog.Logger

	captures     atomic.Uint64
	skipped      atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64

	mu   sync.Mutex
	done chan struct{}
}

func newService(logger *slog.Logger, interval time.Duration, grab Grabber) *service {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &service{grab: grab, interval: interval, logger: logger}
}

// NewService constructs a screen capture service grabbing one frame per
// interval. selectionFn may be nil.
func NewService(logger *slog.Logger, interval time.Duration, selectionFn func() *image.Rectangle) Service {
	s := newService(logger, interval, ScreenGrabber)
	s.SetSelectionProvider(selectionFn)
	return s
}

func (s *service) SetSelectionProvider(fn func() *image.Rectangle) {
	if fn == nil {
		s.selFn.Store(nil)
		return
	}
	s.selFn.Store(&fn)
}

func (s *service) LatestFrame() FrameSnapshot {
	snap := s.latest.Load()
	if snap == nil {
		return FrameSnapshot{}
	}
	return *snap
}

func (s *service) Running() bool { return s.running.Load() }

func (s *service) Stats() Stats {
	captures := s.captures.Load()
	total := s.captureNanos.Load()
	var avg time.Duration
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
	}
	snapshot := s.LatestFrame()
	age := time.Duration(0)
	if !snapshot.CapturedAt.IsZero() {
		age = time.Since(snapshot.CapturedAt)
	}
	return Stats{
		Captures:       captures,
		Skipped:        s.skipped.Load(),
		AvgCapture:     avg,
		LastCapture:    snapshot.CapturedAt,
		LatestFrameAge: age,
		Sequence:       snapshot.Sequence,
	}
}

func (s *service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return
	}
	s.running.Store(true)
	s.done = make(chan struct{})
	go s.loop(s.done)
}

// Stop ends the capture loop and waits for it to exit.
func (s *service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	<-s.done
}

func (s *service) selection() *image.Rectangle {
	fn := s.selFn.Load()
	if fn == nil {
		return nil
	}
	return (*fn)()
}

func (s *service) loop(done chan struct{}) {
	defer close(done)
	logTicker := time.NewTicker(statsLogInterval)
	defer logTicker.Stop()
	for s.running.Load() {
		start := time.Now()
		img, err := s.grab(s.selection())
		if err != nil && s.logger != nil {
			s.logger.Error("capture", "error", err)
		}
		if img == nil {
			s.skipped.Add(1)
			s.sleep(start)
			continue
		}

		elapsed := time.Since(start)
		s.captureNanos.Add(uint64(elapsed.Nanoseconds()))
		s.captures.Add(1)
		seq := s.sequence.Add(1)
		s.latest.Store(&FrameSnapshot{Image: img, CapturedAt: time.Now(), Sequence: seq})

		select {
		case <-logTicker.C:
			s.logStats()
		default:
		}
		s.sleep(start)
	}
}

// sleep waits out the remainder of the capture interval.
func (s *service) sleep(start time.Time) {
	if d := s.interval - time.Since(start); d > 0 {
		time.Sleep(d)
	}
}

func (s *service) logStats() {
	if s.logger == nil {
		return
	}
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"skipped", stats.Skipped,
		"avg_capture", stats.AvgCapture,
		"age", stats.LatestFrameAge,
	)
}
