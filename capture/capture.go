package capture

import (
	"image"

	"github.com/vova616/screenshot"
)

// Grabber produces one frame. sel is the region to capture; nil means the
// whole screen.
type Grabber func(sel *image.Rectangle) (*image.RGBA, error)

// Grab returns a screen capture of the current active monitor.
func Grab() (*image.RGBA, error) {
	img, err := screenshot.CaptureScreen()
	if err != nil {
		return nil, err
	}
	return img, nil
}

// GrabSelection captures only the given screen area.
func GrabSelection(area image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(area)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// ScreenGrabber captures the selection when one is given and falls back to the
// full screen when the selection cannot be grabbed.
func ScreenGrabber(sel *image.Rectangle) (*image.RGBA, error) {
	if sel != nil && !sel.Empty() {
		if img, err := GrabSelection(*sel); err == nil {
			return img, nil
		}
	}
	return Grab()
}

// ScreenBounds returns the primary screen rectangle.
func ScreenBounds() (image.Rectangle, error) {
	return screenshot.ScreenRect()
}
