package tracking

import (
	"image"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/soocke/planetrack-go/domain/features"
	"github.com/soocke/planetrack-go/domain/geometry"
)

// Template is a registered reference view: an image plus the rectangle of it
// that is tracked. Keypoints and Descriptors cover only that rectangle.
type Template struct {
	ID          int
	Image       image.Image
	Rect        image.Rectangle
	Keypoints   []features.Keypoint
	Descriptors []features.Descriptor
}

// Correspondence pairs a template point with the frame point it matched.
type Correspondence struct {
	Template r2.Point
	Frame    r2.Point
}

// TrackedObject is one template found in one frame. Values are plain data and
// never shared with tracker state.
type TrackedObject struct {
	TemplateID int
	Rect       image.Rectangle // template rectangle, template pixels

	// Correspondences holds the RANSAC inliers only.
	Correspondences []Correspondence
	Homography      geometry.Homography
	Matches         int // ratio-test survivors for this template, before RANSAC
	Inliers         int
	MatchRatio      float64 // Inliers over template keypoints, at most 1

	// Quad is the template rectangle mapped into the frame: TL, TR, BR, BL.
	Quad [4]r2.Point

	// Pose in template-pixel units. Center is the translation of the
	// rectangle's centre in camera space; Rotation is axis-angle.
	Center            r3.Vector
	Rotation          r3.Vector
	ReprojectionError float64
}

// Entry is the result of one Track call.
type Entry struct {
	Sequence  uint64 // 0 for placeholder entries
	TrackedAt time.Time
	Objects   []TrackedObject
}

// Empty reports whether the entry holds no objects.
func (e Entry) Empty() bool { return len(e.Objects) == 0 }
