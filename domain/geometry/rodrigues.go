package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

// Rotation is a row-major 3x3 rotation matrix.
type Rotation [3][3]float64

// Apply rotates v.
func (m Rotation) Apply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// RotationFromVector converts an axis-angle vector (direction is the axis,
// norm is the angle in radians) to a rotation matrix.
func RotationFromVector(v r3.Vector) Rotation {
	theta := v.Norm()
	if theta < 1e-12 {
		return Rotation{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
	k := v.Mul(1 / theta)
	s, c := math.Sincos(theta)
	t := 1 - c
	return Rotation{
		{c + t*k.X*k.X, t*k.X*k.Y - s*k.Z, t*k.X*k.Z + s*k.Y},
		{t*k.Y*k.X + s*k.Z, c + t*k.Y*k.Y, t*k.Y*k.Z - s*k.X},
		{t*k.Z*k.X - s*k.Y, t*k.Z*k.Y + s*k.X, c + t*k.Z*k.Z},
	}
}

// Vector converts m back to axis-angle form with angle in [0, pi].
func (m Rotation) Vector() r3.Vector {
	cos := (m[0][0] + m[1][1] + m[2][2] - 1) / 2
	cos = math.Max(-1, math.Min(1, cos))
	theta := math.Acos(cos)
	if theta < 1e-12 {
		return r3.Vector{}
	}
	axis := r3.Vector{X: m[2][1] - m[1][2], Y: m[0][2] - m[2][0], Z: m[1][0] - m[0][1]}
	if s := math.Sin(theta); s > 1e-6 {
		return axis.Mul(theta / (2 * s))
	}

	// theta close to pi: the antisymmetric part vanishes, read the axis from
	// the diagonal and fix signs against the largest component.
	x := math.Sqrt(math.Max(0, (m[0][0]+1)/2))
	y := math.Sqrt(math.Max(0, (m[1][1]+1)/2))
	z := math.Sqrt(math.Max(0, (m[2][2]+1)/2))
	switch {
	case x >= y && x >= z:
		y = math.Copysign(y, m[0][1]+m[1][0])
		z = math.Copysign(z, m[0][2]+m[2][0])
	case y >= z:
		x = math.Copysign(x, m[0][1]+m[1][0])
		z = math.Copysign(z, m[1][2]+m[2][1])
	default:
		x = math.Copysign(x, m[0][2]+m[2][0])
		y = math.Copysign(y, m[1][2]+m[2][1])
	}
	return r3.Vector{X: x, Y: y, Z: z}.Normalize().Mul(theta)
}
