package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

var ErrPoseFailed = errors.New("geometry: pose estimation failed")

// Pose places an object in camera space: x_cam = R*x_obj + Translation.
// Units follow the object points, which are template pixels.
type Pose struct {
	Rotation    r3.Vector // axis-angle
	Translation r3.Vector
	RMSError    float64 // reprojection error of the fitted points, in pixels
}

// Transform maps an object-space point into camera space.
func (p Pose) Transform(x r3.Vector) r3.Vector {
	return RotationFromVector(p.Rotation).Apply(x).Add(p.Translation)
}

// Project maps an object-space point to pixels.
func (p Pose) Project(k Intrinsics, x r3.Vector) (r2.Point, bool) {
	return k.Project(p.Transform(x))
}

// ObjectCorners returns r's corners centred on the origin of the z=0 plane, in
// TL, TR, BR, BL order.
func ObjectCorners(r image.Rectangle) [4]r3.Vector {
	hw := float64(r.Dx()) / 2
	hh := float64(r.Dy()) / 2
	return [4]r3.Vector{
		{X: -hw, Y: -hh},
		{X: hw, Y: -hh},
		{X: hw, Y: hh},
		{X: -hw, Y: hh},
	}
}

// SolvePlanarPose recovers the pose of points lying on the object's z=0 plane
// from their observed pixel positions. The homography between plane and image
// gives the initial estimate, which is then refined by minimising the squared
// reprojection error.
func SolvePlanarPose(object []r3.Vector, observed []r2.Point, k Intrinsics) (Pose, error) {
	n := len(object)
	if n != len(observed) {
		return Pose{}, fmt.Errorf("%w: %d object points, %d observations", ErrPointCount, n, len(observed))
	}
	if n < 4 {
		return Pose{}, fmt.Errorf("%w: got %d", ErrTooFewPoints, n)
	}
	if !k.valid() {
		return Pose{}, fmt.Errorf("%w: invalid intrinsics", ErrPoseFailed)
	}

	var scale float64
	for _, p := range object {
		if math.Abs(p.Z) > 1e-9 {
			return Pose{}, fmt.Errorf("%w: object points must lie on z=0", ErrPoseFailed)
		}
		scale += p.X*p.X + p.Y*p.Y
	}
	scale = math.Sqrt(scale / float64(n))
	if scale == 0 {
		return Pose{}, fmt.Errorf("%w: object points coincide", ErrPoseFailed)
	}

	src := make([]r2.Point, n)
	dst := make([]r2.Point, n)
	for i := range object {
		src[i] = r2.Point{X: object[i].X / scale, Y: object[i].Y / scale}
		dst[i] = k.Normalize(observed[i])
	}
	h, err := fitHomography(src, dst)
	if err != nil {
		return Pose{}, fmt.Errorf("%w: %v", ErrPoseFailed, err)
	}

	initial, err := decompose(h, scale)
	if err != nil {
		return Pose{}, err
	}

	cost := func(x []float64) float64 {
		p := Pose{Rotation: r3.Vector{X: x[0], Y: x[1], Z: x[2]}, Translation: r3.Vector{X: x[3], Y: x[4], Z: x[5]}}
		return sumSquaredError(p, object, observed, k)
	}
	x0 := []float64{
		initial.Rotation.X, initial.Rotation.Y, initial.Rotation.Z,
		initial.Translation.X, initial.Translation.Y, initial.Translation.Z,
	}
	f0 := cost(x0)

	problem := optimize.Problem{Func: cost}
	settings := &optimize.Settings{
		FuncEvaluations: 4000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 200,
		},
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return Pose{}, fmt.Errorf("%w: %v", ErrPoseFailed, err)
	}

	best, fbest := x0, f0
	if result.F < f0 {
		best, fbest = result.X, result.F
	}
	for _, v := range best {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Pose{}, fmt.Errorf("%w: non-finite solution", ErrPoseFailed)
		}
	}
	if math.IsInf(fbest, 0) || math.IsNaN(fbest) {
		return Pose{}, fmt.Errorf("%w: object behind camera", ErrPoseFailed)
	}

	pose := Pose{
		Rotation:    r3.Vector{X: best[0], Y: best[1], Z: best[2]},
		Translation: r3.Vector{X: best[3], Y: best[4], Z: best[5]},
		RMSError:    math.Sqrt(fbest / float64(n)),
	}
	if pose.Translation.Z <= 0 {
		return Pose{}, fmt.Errorf("%w: object behind camera", ErrPoseFailed)
	}
	return pose, nil
}

// decompose turns a plane-to-normalised-image homography into a pose. The
// first two columns of h are scaled by 1/scale to undo the object conditioning.
func decompose(h Homography, scale float64) (Pose, error) {
	h1 := r3.Vector{X: h[0], Y: h[3], Z: h[6]}.Mul(1 / scale)
	h2 := r3.Vector{X: h[1], Y: h[4], Z: h[7]}.Mul(1 / scale)
	h3 := r3.Vector{X: h[2], Y: h[5], Z: h[8]}

	norms := h1.Norm() + h2.Norm()
	if norms == 0 {
		return Pose{}, fmt.Errorf("%w: degenerate plane homography", ErrPoseFailed)
	}
	lambda := 2 / norms
	c1, c2, t := h1.Mul(lambda), h2.Mul(lambda), h3.Mul(lambda)
	if t.Z < 0 {
		c1, c2, t = c1.Mul(-1), c2.Mul(-1), t.Mul(-1)
	}

	rot, ok := nearestRotation(c1, c2, c1.Cross(c2))
	if !ok {
		return Pose{}, fmt.Errorf("%w: rotation decomposition failed", ErrPoseFailed)
	}
	return Pose{Rotation: rot.Vector(), Translation: t}, nil
}

// nearestRotation projects the matrix with columns c1, c2, c3 onto SO(3).
func nearestRotation(c1, c2, c3 r3.Vector) (Rotation, bool) {
	m := mat.NewDense(3, 3, []float64{
		c1.X, c2.X, c3.X,
		c1.Y, c2.Y, c3.Y,
		c1.Z, c2.Z, c3.Z,
	})
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return Rotation{}, false
	}
	var u, v, r mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(&u, v.T())
	}
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r.At(i, j)
		}
	}
	return out, true
}

func sumSquaredError(p Pose, object []r3.Vector, observed []r2.Point, k Intrinsics) float64 {
	rot := RotationFromVector(p.Rotation)
	var sum float64
	for i, x := range object {
		q, ok := k.Project(rot.Apply(x).Add(p.Translation))
		if !ok {
			return math.Inf(1)
		}
		d := q.Sub(observed[i])
		sum += d.X*d.X + d.Y*d.Y
	}
	return sum
}
