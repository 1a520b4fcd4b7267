// Package testutil builds deterministic synthetic images for tests.
package testutil

import (
	"image"
	"image/color"
	"math/rand"

	"github.com/disintegration/imaging"
)

// Texture returns a w x h image made of randomly shaded blocks of size block,
// seeded so the same arguments always produce the same pixels. Block junctions
// give ORB plenty of well-spread corners.
func Texture(w, h, block int, seed int64) *image.NRGBA {
	if block < 1 {
		block = 1
	}
	rng := rand.New(rand.NewSource(seed))
	img := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	for by := 0; by < h; by += block {
		for bx := 0; bx < w; bx += block {
			v := uint8(rng.Intn(256))
			c := color.NRGBA{v, uint8(255 - int(v)/2), uint8(rng.Intn(256)), 255}
			for y := by; y < by+block && y < h; y++ {
				for x := bx; x < bx+block && x < w; x++ {
					img.SetNRGBA(x, y, c)
				}
			}
		}
	}
	return img
}

// NoisyBackground returns a w x h mid-gray image with low-amplitude per-pixel
// noise (+/- amp), too weak to produce FAST corners at the default threshold.
func NoisyBackground(w, h, amp int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(110 + rng.Intn(2*amp+1) - amp)
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

// Flat returns a uniform image.
func Flat(w, h int, v uint8) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{v, v, v, 255})
}

// Paste draws tmpl onto a copy of bg with its top-left corner at at.
func Paste(bg, tmpl image.Image, at image.Point) *image.NRGBA {
	return imaging.Paste(bg, tmpl, at)
}
