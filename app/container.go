package app

import (
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/soocke/planetrack-go/capture"
	"github.com/soocke/planetrack-go/config"
	"github.com/soocke/planetrack-go/domain/tracking"
)

// Container assembles the tracker and, on demand, the capture service.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Tracker *tracking.Tracker

	// Templates lists what was registered, in registration order.
	Templates []TemplateInfo

	capture capture.Service
}

// BuildContainer constructs all components. Screen capture is created lazily
// by CaptureService so folder scans never touch the display.
func BuildContainer(cfg *config.Config, logger *slog.Logger) *Container {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Container{
		Config:  cfg,
		Logger:  logger,
		Tracker: tracking.NewTracker(cfg, logger.With("component", "tracker")),
	}
}

// CaptureService returns the screen capture service, creating it on first use.
func (c *Container) CaptureService() capture.Service {
	if c.capture == nil {
		interval := time.Duration(c.Config.CaptureIntervalMS) * time.Millisecond
		c.capture = capture.NewService(c.Logger.With("component", "capture"), interval, c.selection)
	}
	return c.capture
}

// selection returns the configured capture region, or nil for full screen.
func (c *Container) selection() *image.Rectangle {
	if c.Config.SelectionW <= 0 || c.Config.SelectionH <= 0 {
		return nil
	}
	r := image.Rect(c.Config.SelectionX, c.Config.SelectionY,
		c.Config.SelectionX+c.Config.SelectionW, c.Config.SelectionY+c.Config.SelectionH)
	return &r
}

// TemplateName returns the file name registered under id.
func (c *Container) TemplateName(id int) string {
	for _, t := range c.Templates {
		for _, tid := range t.IDs {
			if tid == id {
				return t.Name
			}
		}
	}
	return ""
}

// Close stops capture and releases the tracker.
func (c *Container) Close() error {
	if c.capture != nil {
		c.capture.Stop()
	}
	return c.Tracker.Close()
}
