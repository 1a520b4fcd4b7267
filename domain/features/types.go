package features

import (
	"encoding/binary"
	"math/bits"
)

// Keypoint is a detected image location with its scale/orientation metadata.
// Coordinates are in the source image's coordinate space.
type Keypoint struct {
	X, Y     float64
	Size     float64
	Angle    float64
	Response float64
	Octave   int
}

// Descriptor is a binary feature vector paired 1:1 with a Keypoint.
type Descriptor []byte

// Hamming returns the number of differing bits between a and b. Only the common
// prefix is compared when lengths differ.
func Hamming(a, b Descriptor) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	d := 0
	i := 0
	for ; i+8 <= n; i += 8 {
		d += bits.OnesCount64(binary.LittleEndian.Uint64(a[i:]) ^ binary.LittleEndian.Uint64(b[i:]))
	}
	for ; i < n; i++ {
		d += bits.OnesCount8(a[i] ^ b[i])
	}
	return d
}

// Bit reports whether bit i (LSB-first within each byte) is set.
func (d Descriptor) Bit(i int) bool {
	return d[i>>3]&(1<<(uint(i)&7)) != 0
}
