package app

import "github.com/soocke/planetrack-go/domain/tracking"

// Matches returns every object of entry whose MatchRatio reaches minRatio, in
// entry order. The whole list is scanned, not only the best-supported object.
func Matches(entry tracking.Entry, minRatio float64) []tracking.TrackedObject {
	var out []tracking.TrackedObject
	for _, obj := range entry.Objects {
		if obj.MatchRatio >= minRatio {
			out = append(out, obj)
		}
	}
	return out
}

// IsMatch reports whether any object of entry reaches minRatio.
func IsMatch(entry tracking.Entry, minRatio float64) bool {
	return len(Matches(entry, minRatio)) > 0
}

// MinRatio converts the configured match percentage to a ratio.
func (c *Container) MinRatio() float64 {
	return c.Config.MinMatchPercent / 100
}
