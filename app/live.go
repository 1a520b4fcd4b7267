package app

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/planetrack-go/capture"
	"github.com/soocke/planetrack-go/domain/tracking"
)

const sessionLogInterval = 10 * time.Second

// FrameTracker is the tracking surface the live loop needs. TrackEntry
// returns the History entry recorded for that frame.
type FrameTracker interface {
	TrackEntry(frame image.Image) (tracking.Entry, error)
}

// LiveResult is reported after each tracked live frame.
type LiveResult struct {
	Sequence uint64 // capture sequence of the frame
	Entry    tracking.Entry
	Matched  []tracking.TrackedObject
	Duration time.Duration
}

type liveTask struct {
	snapshot capture.FrameSnapshot
}

type liveOutcome struct {
	sequence uint64
	entry    tracking.Entry
	err      error
	duration time.Duration
}

// LiveTracker feeds captured frames to a tracker on a dedicated worker
// goroutine. ProcessFrame is called from a single loop goroutine: it hands the
// newest frame to the worker and, once the worker finishes, applies the match
// threshold to the entry recorded for that frame.
type LiveTracker struct {
	Source   capture.FrameSource
	Tracker  FrameTracker
	MinRatio float64
	Session  *Session
	OnResult func(LiveResult)
	Resize   func(image.Image) image.Image
	logger   *slog.Logger

	workerOnce sync.Once
	closeOnce  sync.Once
	workCh     chan liveTask
	resultCh   chan liveOutcome

	lastSeq uint64
}

// NewLiveTracker constructs a live tracker. Close stops its worker.
func NewLiveTracker(source capture.FrameSource, tracker FrameTracker, minRatio float64, session *Session, logger *slog.Logger) *LiveTracker {
	return &LiveTracker{
		Source:   source,
		Tracker:  tracker,
		MinRatio: minRatio,
		Session:  session,
		logger:   logger,
		workCh:   make(chan liveTask, 1),
		resultCh: make(chan liveOutcome, 1),
	}
}

// ProcessFrame handles finished work and schedules the newest frame.
func (p *LiveTracker) ProcessFrame() {
	if p == nil || p.Source == nil || p.Tracker == nil {
		return
	}
	p.ensureWorker()

	for {
		select {
		case res := <-p.resultCh:
			p.handleResult(res)
		default:
			goto drained
		}
	}

drained:
	if !p.Source.Running() {
		return
	}
	snapshot := p.Source.LatestFrame()
	if snapshot.Image == nil || snapshot.Sequence == 0 || snapshot.Sequence == p.lastSeq {
		return
	}
	p.lastSeq = snapshot.Sequence
	p.dispatch(liveTask{snapshot: snapshot})
}

// Close stops the worker goroutine.
func (p *LiveTracker) Close() {
	p.closeOnce.Do(func() { close(p.workCh) })
}

func (p *LiveTracker) ensureWorker() {
	p.workerOnce.Do(func() {
		go p.runWorker()
	})
}

func (p *LiveTracker) runWorker() {
	for task := range p.workCh {
		res := p.execute(task)
		// Keep only the newest outcome.
		select {
		case p.resultCh <- res:
		default:
			select {
			case <-p.resultCh:
			default:
			}
			select {
			case p.resultCh <- res:
			default:
			}
		}
	}
}

// dispatch queues task, replacing any frame still waiting for the worker.
func (p *LiveTracker) dispatch(task liveTask) {
	select {
	case p.workCh <- task:
	default:
		select {
		case <-p.workCh:
		default:
		}
		select {
		case p.workCh <- task:
		default:
		}
	}
}

func (p *LiveTracker) execute(task liveTask) liveOutcome {
	res := liveOutcome{sequence: task.snapshot.Sequence}
	if task.snapshot.Image == nil {
		res.err = errors.New("nil frame")
		return res
	}
	var frame image.Image = task.snapshot.Image
	if p.Resize != nil {
		frame = p.Resize(frame)
	}
	start := time.Now()
	res.entry, res.err = p.Tracker.TrackEntry(frame)
	res.duration = time.Since(start)
	return res
}

func (p *LiveTracker) handleResult(res liveOutcome) {
	if res.err != nil && p.logger != nil {
		p.logger.Error("track", "sequence", res.sequence, "error", res.err)
	}
	entry := res.entry
	matched := Matches(entry, p.MinRatio)
	p.Session.RecordFrame(len(matched) > 0)
	if p.logger != nil {
		p.logger.Debug("frame tracked",
			"sequence", res.sequence,
			"objects", len(entry.Objects),
			"matched", len(matched),
			"duration", res.duration,
		)
	}
	if p.OnResult != nil {
		p.OnResult(LiveResult{Sequence: res.sequence, Entry: entry, Matched: matched, Duration: res.duration})
	}
}

// RunLive captures the screen and tracks frames until ctx is done.
func RunLive(ctx context.Context, c *Container, report func(LiveResult)) error {
	if b, err := capture.ScreenBounds(); err == nil {
		c.Logger.Info("live capture", "screen", b, "selection", c.selection())
	} else {
		c.Logger.Warn("screen bounds", "error", err)
	}
	svc := c.CaptureService()
	svc.Start()
	defer svc.Stop()

	session := NewSession()
	live := NewLiveTracker(svc, c.Tracker, c.MinRatio(), session, c.Logger.With("component", "live"))
	live.OnResult = report
	live.Resize = func(img image.Image) image.Image {
		return capture.ResizeToMax(img, c.Config.MaxFrameWidth, c.Config.MaxFrameHeight)
	}
	defer live.Close()

	interval := time.Duration(c.Config.CaptureIntervalMS) * time.Millisecond
	loop := NewLoop(session, live, svc, interval)
	loop.OnSessionLog = func(session, total time.Duration, frames, matched uint64) {
		c.Logger.Info("session",
			"session", session,
			"total", total,
			"frames", frames,
			"matched", matched,
			"capture_avg", svc.Stats().AvgCapture,
		)
	}
	loop.Run(ctx)
	return nil
}
