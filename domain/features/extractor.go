package features

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/gift"
	"gocv.io/x/gocv"
)

// ErrEmptyImage is returned when Detect is handed a nil or zero-area image.
var ErrEmptyImage = errors.New("features: empty image")

// Options configures the ORB detector.
type Options struct {
	MaxFeatures   int
	EdgeThreshold int
	PatchSize     int
}

// Extractor detects ORB keypoints and binary descriptors.
// Not safe for concurrent use; the underlying detector carries state.
type Extractor struct {
	orb  gocv.ORB
	gray *gift.GIFT
	opts Options
}

// NewExtractor builds an ORB extractor bounded to opts.MaxFeatures detections.
// Close must be called to release the native detector.
func NewExtractor(opts Options) *Extractor {
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = 1500
	}
	if opts.PatchSize <= 0 {
		opts.PatchSize = 31
	}
	if opts.EdgeThreshold <= 0 {
		opts.EdgeThreshold = opts.PatchSize
	}
	orb := gocv.NewORBWithParams(opts.MaxFeatures, 1.2, 8, opts.EdgeThreshold, 0, 2, gocv.ORBScoreTypeHarris, opts.PatchSize, 20)
	return &Extractor{orb: orb, gray: gift.New(gift.Grayscale()), opts: opts}
}

// Close releases the native detector.
func (e *Extractor) Close() error {
	return e.orb.Close()
}

// MaxFeatures returns the configured detection bound.
func (e *Extractor) MaxFeatures() int { return e.opts.MaxFeatures }

// Detect returns keypoints and their descriptors for img. The descriptor slice is
// never nil; it is empty when nothing was found.
//
// The image reaches OpenCV as a host Mat, so the OpenCL path is never taken and
// repeated calls on the same pixels give the same output.
func (e *Extractor) Detect(img image.Image) ([]Keypoint, []Descriptor, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, []Descriptor{}, ErrEmptyImage
	}
	b := img.Bounds()
	gray := toGray(e.gray, img)

	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, []Descriptor{}, fmt.Errorf("features: convert image: %w", err)
	}
	defer mat.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	kps, desc := e.orb.DetectAndCompute(mat, mask)
	defer desc.Close()

	if len(kps) == 0 || desc.Empty() {
		return []Keypoint{}, []Descriptor{}, nil
	}
	rows, cols := desc.Rows(), desc.Cols()
	if rows != len(kps) {
		return nil, []Descriptor{}, fmt.Errorf("features: %d keypoints but %d descriptors", len(kps), rows)
	}
	raw := desc.ToBytes()

	keypoints := make([]Keypoint, len(kps))
	descriptors := make([]Descriptor, len(kps))
	for i, kp := range kps {
		keypoints[i] = Keypoint{
			X:        kp.X + float64(b.Min.X),
			Y:        kp.Y + float64(b.Min.Y),
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		}
		d := make(Descriptor, cols)
		copy(d, raw[i*cols:(i+1)*cols])
		descriptors[i] = d
	}
	return keypoints, descriptors, nil
}

// toGray converts img to an 8-bit grayscale image anchored at (0,0).
func toGray(g *gift.GIFT, img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok && gray.Bounds().Min == (image.Point{}) {
		return gray
	}
	dst := image.NewGray(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}
