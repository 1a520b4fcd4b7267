package geometry

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Intrinsics is a pinhole camera model without lens distortion.
type Intrinsics struct {
	Fx, Fy float64
	Cx, Cy float64
}

// ApproximateIntrinsics derives a camera matrix from the frame size and a
// focal length hint: f = (0.5 + focal/50) * width, principal point at the
// frame centre.
func ApproximateIntrinsics(width, height int, focal float64) Intrinsics {
	f := (0.5 + focal/50.0) * float64(width)
	return Intrinsics{
		Fx: f,
		Fy: f,
		Cx: 0.5 * float64(width-1),
		Cy: 0.5 * float64(height-1),
	}
}

// Matrix returns K.
func (k Intrinsics) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		k.Fx, 0, k.Cx,
		0, k.Fy, k.Cy,
		0, 0, 1,
	})
}

// Project maps a camera-space point to pixels. ok is false for points on or
// behind the image plane.
func (k Intrinsics) Project(p r3.Vector) (r2.Point, bool) {
	if p.Z <= 0 {
		return r2.Point{}, false
	}
	return r2.Point{X: k.Fx*p.X/p.Z + k.Cx, Y: k.Fy*p.Y/p.Z + k.Cy}, true
}

// Normalize maps a pixel to normalised image coordinates.
func (k Intrinsics) Normalize(p r2.Point) r2.Point {
	return r2.Point{X: (p.X - k.Cx) / k.Fx, Y: (p.Y - k.Cy) / k.Fy}
}

func (k Intrinsics) valid() bool {
	return k.Fx > 0 && k.Fy > 0
}
