package app

import (
	"context"
	"image"

	"github.com/soocke/planetrack-go/capture"
	"github.com/soocke/planetrack-go/domain/tracking"
)

// ScanResult is the outcome of tracking one image file.
type ScanResult struct {
	Path    string
	Entry   tracking.Entry
	Matched []tracking.TrackedObject
	Err     error
}

// ScanFrame tracks one frame, shrunk to the configured maximum size, and
// applies the match threshold to the resulting history entry.
func (c *Container) ScanFrame(img image.Image) (tracking.Entry, []tracking.TrackedObject, error) {
	frame := capture.ResizeToMax(img, c.Config.MaxFrameWidth, c.Config.MaxFrameHeight)
	entry, err := c.Tracker.TrackEntry(frame)
	return entry, Matches(entry, c.MinRatio()), err
}

// ScanDir tracks every image in dir in name order and reports each result.
// It returns the number of frames with at least one match.
func (c *Container) ScanDir(ctx context.Context, dir string, report func(ScanResult)) (int, error) {
	paths, err := capture.ListImages(dir)
	if err != nil {
		return 0, err
	}
	matched := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return matched, err
		}
		res := ScanResult{Path: p}
		img, err := capture.LoadImage(p)
		if err != nil {
			res.Err = err
		} else {
			res.Entry, res.Matched, res.Err = c.ScanFrame(img)
		}
		if len(res.Matched) > 0 {
			matched++
		}
		if report != nil {
			report(res)
		}
	}
	return matched, nil
}
