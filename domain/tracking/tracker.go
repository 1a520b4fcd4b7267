package tracking

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/golang/geo/r2"

	"github.com/soocke/planetrack-go/config"
	"github.com/soocke/planetrack-go/domain/features"
	"github.com/soocke/planetrack-go/domain/geometry"
	"github.com/soocke/planetrack-go/domain/matching"
)

// ErrUnreadableImage is returned when an image cannot be turned into features.
var ErrUnreadableImage = errors.New("tracking: unreadable image")

// Neighbours requested per frame descriptor; the ratio test needs two.
const knnK = 2

// Tracker finds registered planar templates in frames and records one
// History entry per Track call.
//
// AddTarget, AddTemplateViews, Track and Clear share one lock, so
// registration never overlaps an in-flight Track. History may be read from any
// goroutine.
type Tracker struct {
	mu sync.Mutex

	logger    *slog.Logger
	extractor *features.Extractor
	registry  *Registry
	index     *matching.Index
	history   *History

	focalLength float64
	minMatches  int
	ratio       float64
	ransacTol   float64

	// Camera model, derived from the first tracked frame.
	intrinsics *geometry.Intrinsics
}

// NewTracker builds a tracker from cfg. A nil cfg means defaults; a nil
// logger discards output. Close releases the native feature detector.
func NewTracker(cfg *config.Config, logger *slog.Logger) *Tracker {
	if cfg == nil {
		cfg = config.DefaultConfig()
	} else {
		c := *cfg
		_ = c.Validate()
		cfg = &c
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tracker{
		logger: logger,
		extractor: features.NewExtractor(features.Options{
			MaxFeatures:   cfg.MaxFeatures,
			EdgeThreshold: cfg.ORBEdgeThreshold,
			PatchSize:     cfg.ORBPatchSize,
		}),
		registry: NewRegistry(),
		index: matching.NewIndex(matching.IndexOptions{
			Tables:     cfg.LSHTables,
			KeySize:    cfg.LSHKeySize,
			ProbeLevel: cfg.LSHProbeLevel,
			Seed:       1,
		}),
		history:     NewHistory(cfg.HistoryLength),
		focalLength: cfg.FocalLength,
		minMatches:  cfg.MinMatchCount,
		ratio:       cfg.RatioTestThreshold,
		ransacTol:   cfg.RansacReprojectionPx,
	}
}

// Close releases native resources.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.extractor.Close()
}

// History returns the tracker's result history.
func (t *Tracker) History() *History { return t.history }

// Len returns the number of registered templates.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registry.Len()
}

// Template returns a copy of the registered template with the given id.
func (t *Tracker) Template(id int) (Template, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tmpl, ok := t.registry.Get(id)
	if !ok {
		return Template{}, false
	}
	return *tmpl, true
}

// AddTarget registers rect of img as a template and returns its id.
//
// A nil or empty image, an empty rect or a rect not inside the image bounds
// is ignored (added is false, err is nil). Registering the same image value
// and rect twice returns the existing id with added false.
func (t *Tracker) AddTarget(img image.Image, rect image.Rectangle) (id int, added bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addTargetLocked(img, rect)
}

func (t *Tracker) addTargetLocked(img image.Image, rect image.Rectangle) (int, bool, error) {
	if img == nil {
		return -1, false, nil
	}
	b := img.Bounds()
	if b.Empty() || rect.Empty() || !rect.In(b) {
		t.logger.Debug("template ignored", "reason", "invalid rectangle", "rect", rect, "bounds", b)
		return -1, false, nil
	}
	if id, ok := t.registry.Find(img, rect); ok {
		return id, false, nil
	}

	kps, descs, err := t.extractor.Detect(img)
	if err != nil {
		return -1, false, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	x0, y0 := float64(rect.Min.X), float64(rect.Min.Y)
	x1, y1 := float64(rect.Max.X), float64(rect.Max.Y)
	keptKps := make([]features.Keypoint, 0, len(kps))
	keptDescs := make([]features.Descriptor, 0, len(descs))
	for i, kp := range kps {
		if x0 <= kp.X && kp.X <= x1 && y0 <= kp.Y && kp.Y <= y1 {
			keptKps = append(keptKps, kp)
			keptDescs = append(keptDescs, descs[i])
		}
	}

	id := t.registry.Add(Template{Image: img, Rect: rect, Keypoints: keptKps, Descriptors: keptDescs})
	tag, err := t.index.Add(keptDescs)
	if err != nil {
		t.registry.removeLast()
		return -1, false, err
	}
	if tag != id {
		// Registry and index are always cleared together, so this only
		// happens if that invariant is broken.
		t.registry.removeLast()
		return -1, false, fmt.Errorf("tracking: index tag %d does not match template id %d", tag, id)
	}
	t.logger.Info("template registered", "template", id, "rect", rect, "keypoints", len(keptKps))
	return id, true, nil
}

// Track locates the registered templates in frame, pushes exactly one History
// entry and returns its objects, most inliers first.
//
// A frame that cannot be read pushes an empty entry and returns an error
// wrapping ErrUnreadableImage. Every other failure is local to one template or
// yields an empty result.
func (t *Tracker) Track(frame image.Image) ([]TrackedObject, error) {
	objects, _, err := t.track(frame)
	return objects, err
}

// TrackEntry is Track returning the History entry it pushed.
func (t *Tracker) TrackEntry(frame image.Image) (Entry, error) {
	_, e, err := t.track(frame)
	return e, err
}

func (t *Tracker) track(frame image.Image) ([]TrackedObject, Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if frame == nil || frame.Bounds().Empty() {
		objects, e := t.publish(nil)
		return objects, e, fmt.Errorf("%w: empty frame", ErrUnreadableImage)
	}
	kps, descs, err := t.extractor.Detect(frame)
	if err != nil {
		objects, e := t.publish(nil)
		return objects, e, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	if len(kps) < t.minMatches || t.registry.Len() == 0 {
		t.logger.Debug("frame skipped", "reason", "insufficient features", "keypoints", len(kps), "templates", t.registry.Len())
		objects, e := t.publish(nil)
		return objects, e, nil
	}

	b := frame.Bounds()
	k := t.cameraFor(b)

	matches := matching.RatioTest(t.index.KnnMatch(descs, knnK), t.ratio)
	if len(matches) < t.minMatches {
		t.logger.Debug("frame skipped", "reason", "insufficient matches", "matches", len(matches))
		objects, e := t.publish(nil)
		return objects, e, nil
	}

	objects := make([]TrackedObject, 0)
	for _, g := range matching.GroupByTemplate(matches) {
		if obj, ok := t.locate(g, kps, b.Min, k); ok {
			objects = append(objects, obj)
		}
	}
	sort.SliceStable(objects, func(i, j int) bool {
		if objects[i].Inliers != objects[j].Inliers {
			return objects[i].Inliers > objects[j].Inliers
		}
		return objects[i].TemplateID < objects[j].TemplateID
	})
	out, e := t.publish(objects)
	return out, e, nil
}

// publish records objects in History. History keeps its own copy, so neither
// return value aliases it.
func (t *Tracker) publish(objects []TrackedObject) ([]TrackedObject, Entry) {
	e := t.history.Push(objects)
	if objects == nil {
		objects = []TrackedObject{}
	}
	return objects, e
}

// cameraFor returns the tracker's intrinsics, deriving them from the first
// frame seen.
func (t *Tracker) cameraFor(b image.Rectangle) geometry.Intrinsics {
	if t.intrinsics == nil {
		k := geometry.ApproximateIntrinsics(b.Dx(), b.Dy(), t.focalLength)
		t.intrinsics = &k
		t.logger.Debug("camera intrinsics set", "fx", k.Fx, "cx", k.Cx, "cy", k.Cy)
	}
	return *t.intrinsics
}

// locate fits one template's matches. ok is false when the template is not
// confidently present.
func (t *Tracker) locate(g matching.Group, kps []features.Keypoint, origin image.Point, k geometry.Intrinsics) (TrackedObject, bool) {
	tmpl, found := t.registry.Get(g.Template)
	if !found {
		return TrackedObject{}, false
	}
	log := t.logger.With("template", g.Template)
	if len(g.Matches) < t.minMatches {
		log.Debug("template dropped", "reason", "insufficient matches", "matches", len(g.Matches))
		return TrackedObject{}, false
	}

	src := make([]r2.Point, len(g.Matches))
	dst := make([]r2.Point, len(g.Matches))
	for i, m := range g.Matches {
		tk, fk := tmpl.Keypoints[m.Train], kps[m.Query]
		src[i] = r2.Point{X: tk.X, Y: tk.Y}
		dst[i] = r2.Point{X: fk.X, Y: fk.Y}
	}
	h, mask, err := geometry.EstimateHomography(src, dst, t.ransacTol)
	if err != nil {
		log.Debug("template dropped", "reason", "degenerate homography", "error", err)
		return TrackedObject{}, false
	}
	inliers := make([]Correspondence, 0, len(mask))
	for i, ok := range mask {
		if ok {
			inliers = append(inliers, Correspondence{Template: src[i], Frame: dst[i]})
		}
	}
	if len(inliers) < t.minMatches {
		log.Debug("template dropped", "reason", "insufficient inliers", "matches", len(g.Matches), "inliers", len(inliers))
		return TrackedObject{}, false
	}
	quad, ok := h.MapRect(tmpl.Rect)
	if !ok {
		log.Debug("template dropped", "reason", "degenerate homography", "error", "rectangle maps to infinity")
		return TrackedObject{}, false
	}

	// Intrinsics assume pixel coordinates that start at the frame origin.
	observed := make([]r2.Point, len(quad))
	for i, q := range quad {
		observed[i] = q.Sub(r2.Point{X: float64(origin.X), Y: float64(origin.Y)})
	}
	corners := geometry.ObjectCorners(tmpl.Rect)
	pose, err := geometry.SolvePlanarPose(corners[:], observed, k)
	if err != nil {
		log.Debug("template dropped", "reason", "pose solve failed", "error", err)
		return TrackedObject{}, false
	}

	ratio := 0.0
	if n := len(tmpl.Keypoints); n > 0 {
		ratio = float64(len(inliers)) / float64(n)
	}
	// Several frame descriptors may match the same template keypoint.
	if ratio > 1 {
		ratio = 1
	}
	return TrackedObject{
		TemplateID:        tmpl.ID,
		Rect:              tmpl.Rect,
		Correspondences:   inliers,
		Homography:        h,
		Matches:           len(g.Matches),
		Inliers:           len(inliers),
		MatchRatio:        ratio,
		Quad:              quad,
		Center:            pose.Translation,
		Rotation:          pose.Rotation,
		ReprojectionError: pose.RMSError,
	}, true
}

// Clear drops every template, empties the index and resets History. The
// camera model is kept.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.registry.Clear()
	t.index.Clear()
	t.history.Clear()
	t.logger.Info("tracker cleared")
}
