package geometry

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomographyApply(t *testing.T) {
	h := Homography{1, 0, 10, 0, 1, -5, 0, 0, 1}
	q, ok := h.Apply(r2.Point{X: 3, Y: 4})
	require.True(t, ok)
	assert.InDelta(t, 13, q.X, 1e-12)
	assert.InDelta(t, -1, q.Y, 1e-12)

	// Line at infinity.
	h = Homography{1, 0, 0, 0, 1, 0, 1, 0, 0}
	_, ok = h.Apply(r2.Point{X: 0, Y: 7})
	assert.False(t, ok)
}

func TestHomographyInverse(t *testing.T) {
	h := Homography{1.2, 0.1, 30, -0.05, 0.9, 12, 1e-4, 2e-4, 1}
	inv, err := h.Inverse()
	require.NoError(t, err)
	p := r2.Point{X: 42, Y: -17}
	q, ok := h.Apply(p)
	require.True(t, ok)
	back, ok := inv.Apply(q)
	require.True(t, ok)
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
	assert.True(t, h.Invertible())
	assert.True(t, Identity().Invertible())
}

func TestHomographyInvertible_RejectsDegenerate(t *testing.T) {
	cases := map[string]Homography{
		"zero":      {},
		"rank two":  {1, 2, 3, 2, 4, 6, 0, 0, 1},
		"collapsed": {1, 0, 0, 0, 0, 0, 0, 0, 1},
		"nan":       {1, 0, 0, 0, 1, 0, 0, 0, math.NaN()},
		"inf":       {math.Inf(1), 0, 0, 0, 1, 0, 0, 0, 1},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, h.Invertible())
			_, err := h.Inverse()
			assert.ErrorIs(t, err, ErrDegenerate)
		})
	}
}

func TestMapRect(t *testing.T) {
	h := Homography{1, 0, 200, 0, 1, 150, 0, 0, 1}
	quad, ok := h.MapRect(image.Rect(0, 0, 100, 80))
	require.True(t, ok)
	want := [4]r2.Point{{X: 200, Y: 150}, {X: 300, Y: 150}, {X: 300, Y: 230}, {X: 200, Y: 230}}
	for i := range want {
		assert.InDelta(t, want[i].X, quad[i].X, 1e-9)
		assert.InDelta(t, want[i].Y, quad[i].Y, 1e-9)
	}
}

func TestEstimateHomography_RecoversModelWithOutliers(t *testing.T) {
	truth := Homography{0.9, -0.1, 120, 0.08, 1.05, 40, 2e-4, -1e-4, 1}
	rng := rand.New(rand.NewSource(11))

	var src, dst []r2.Point
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			p := r2.Point{X: float64(x*20 + 5), Y: float64(y*15 + 3)}
			q, ok := truth.Apply(p)
			require.True(t, ok)
			src = append(src, p)
			dst = append(dst, q)
		}
	}
	outliers := map[int]bool{}
	for len(outliers) < 12 {
		i := rng.Intn(len(src))
		if outliers[i] {
			continue
		}
		outliers[i] = true
		dst[i] = dst[i].Add(r2.Point{X: 40 + rng.Float64()*60, Y: -50 - rng.Float64()*60})
	}

	h, mask, err := EstimateHomography(src, dst, 3.0)
	require.NoError(t, err)
	require.Len(t, mask, len(src))
	for i := range src {
		if outliers[i] {
			assert.False(t, mask[i], "outlier %d kept", i)
			continue
		}
		assert.True(t, mask[i], "inlier %d dropped", i)
		q, ok := h.Apply(src[i])
		require.True(t, ok)
		assert.InDelta(t, dst[i].X, q.X, 0.1)
		assert.InDelta(t, dst[i].Y, q.Y, 0.1)
	}
}

func TestEstimateHomography_InputErrors(t *testing.T) {
	pts := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	_, _, err := EstimateHomography(pts, pts, 3)
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, _, err = EstimateHomography(pts, pts[:2], 3)
	assert.ErrorIs(t, err, ErrPointCount)
}

func TestFitHomography(t *testing.T) {
	truth := Homography{1.1, 0.2, -3, -0.1, 0.95, 7, 1e-3, 5e-4, 1}
	src := []r2.Point{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}}
	dst := make([]r2.Point, len(src))
	for i, p := range src {
		dst[i], _ = truth.Apply(p)
	}
	h, err := fitHomography(src, dst)
	require.NoError(t, err)
	for i := range h {
		assert.InDelta(t, truth[i], h[i], 1e-9)
	}

	collinear := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	_, err = fitHomography(collinear, dst)
	assert.ErrorIs(t, err, ErrDegenerate)
}
