package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrTooFewPoints = errors.New("geometry: at least 4 correspondences required")
	ErrPointCount   = errors.New("geometry: source and destination point counts differ")
	ErrDegenerate   = errors.New("geometry: degenerate homography")
)

// RANSAC settings passed to OpenCV.
const (
	ransacMaxIters   = 2000
	ransacConfidence = 0.995
)

// Homography is a row-major 3x3 projective transform.
type Homography [9]float64

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Apply maps p through h. ok is false when p maps to infinity.
func (h Homography) Apply(p r2.Point) (q r2.Point, ok bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return r2.Point{}, false
	}
	return r2.Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// Dense returns h as a gonum matrix.
func (h Homography) Dense() *mat.Dense {
	return mat.NewDense(3, 3, append([]float64(nil), h[:]...))
}

// Inverse returns the inverse transform, normalised so that its last entry is 1
// when possible.
func (h Homography) Inverse() (Homography, error) {
	if !h.finite() {
		return Homography{}, fmt.Errorf("%w: non-finite entries", ErrDegenerate)
	}
	if h.singular() {
		return Homography{}, fmt.Errorf("%w: determinant is zero", ErrDegenerate)
	}
	var inv mat.Dense
	if err := inv.Inverse(h.Dense()); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = inv.At(r, c)
		}
	}
	return out.normalized(), nil
}

// Invertible reports whether h has finite entries and a usable inverse.
func (h Homography) Invertible() bool {
	_, err := h.Inverse()
	return err == nil
}

// MapRect maps the corners of r through h in TL, TR, BR, BL order.
func (h Homography) MapRect(r image.Rectangle) ([4]r2.Point, bool) {
	corners := RectCorners(r)
	var quad [4]r2.Point
	for i, c := range corners {
		q, ok := h.Apply(c)
		if !ok {
			return quad, false
		}
		quad[i] = q
	}
	return quad, true
}

// RectCorners returns the corners of r in TL, TR, BR, BL order.
func RectCorners(r image.Rectangle) [4]r2.Point {
	x0, y0 := float64(r.Min.X), float64(r.Min.Y)
	x1, y1 := float64(r.Max.X), float64(r.Max.Y)
	return [4]r2.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func (h Homography) finite() bool {
	for _, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// singular compares the determinant against the cube of the Frobenius norm so
// the test does not depend on the overall scale of h.
func (h Homography) singular() bool {
	var norm float64
	for _, v := range h {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return true
	}
	det := mat.Det(h.Dense())
	return math.Abs(det) <= 1e-12*norm*norm*norm
}

func (h Homography) normalized() Homography {
	if math.Abs(h[8]) < 1e-12 {
		return h
	}
	s := h[8]
	for i := range h {
		h[i] /= s
	}
	return h
}

// EstimateHomography fits a homography mapping src onto dst with RANSAC.
// tol is the reprojection distance, in pixels, separating inliers from
// outliers. The returned mask flags the inliers of src/dst.
func EstimateHomography(src, dst []r2.Point, tol float64) (Homography, []bool, error) {
	if len(src) != len(dst) {
		return Homography{}, nil, fmt.Errorf("%w: %d != %d", ErrPointCount, len(src), len(dst))
	}
	n := len(src)
	if n < 4 {
		return Homography{}, nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, n)
	}

	srcMat := gocv.NewMatWithSize(n, 1, gocv.MatTypeCV64FC2)
	defer srcMat.Close()
	dstMat := gocv.NewMatWithSize(n, 1, gocv.MatTypeCV64FC2)
	defer dstMat.Close()
	for i := 0; i < n; i++ {
		srcMat.SetDoubleAt(i, 0, src[i].X)
		srcMat.SetDoubleAt(i, 1, src[i].Y)
		dstMat.SetDoubleAt(i, 0, dst[i].X)
		dstMat.SetDoubleAt(i, 1, dst[i].Y)
	}

	mask := gocv.NewMat()
	defer mask.Close()
	hm := gocv.FindHomography(srcMat, &dstMat, gocv.HomograpyMethodRANSAC, tol, &mask, ransacMaxIters, ransacConfidence)
	defer hm.Close()
	if hm.Empty() || hm.Rows() != 3 || hm.Cols() != 3 {
		return Homography{}, nil, fmt.Errorf("%w: no model found", ErrDegenerate)
	}

	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = hm.GetDoubleAt(r, c)
		}
	}
	if !h.Invertible() {
		return Homography{}, nil, fmt.Errorf("%w: not invertible", ErrDegenerate)
	}

	inliers := make([]bool, n)
	if mask.Rows() == n {
		for i := 0; i < n; i++ {
			inliers[i] = mask.GetUCharAt(i, 0) != 0
		}
	}
	return h.normalized(), inliers, nil
}

// fitHomography solves the direct linear transform for src -> dst in the least
// squares sense. Four or more points in general position are required.
func fitHomography(src, dst []r2.Point) (Homography, error) {
	if len(src) != len(dst) {
		return Homography{}, ErrPointCount
	}
	n := len(src)
	if n < 4 {
		return Homography{}, ErrTooFewPoints
	}
	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{X, Y, 1, 0, 0, 0, -x * X, -x * Y, -x})
		a.SetRow(2*i+1, []float64{0, 0, 0, X, Y, 1, -y * X, -y * Y, -y})
	}
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return Homography{}, fmt.Errorf("%w: svd failed", ErrDegenerate)
	}
	values := svd.Values(nil)
	// Rank below 8 means the null space is not a single transform.
	if len(values) >= 8 && values[7] <= 1e-10*values[0] {
		return Homography{}, fmt.Errorf("%w: points are not in general position", ErrDegenerate)
	}
	var v mat.Dense
	svd.VTo(&v)
	var h Homography
	for i := 0; i < 9; i++ {
		h[i] = v.At(i, 8)
	}
	if !h.Invertible() {
		return Homography{}, fmt.Errorf("%w: not invertible", ErrDegenerate)
	}
	return h.normalized(), nil
}
