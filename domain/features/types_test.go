package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHamming(t *testing.T) {
	a := Descriptor{0x00, 0xFF, 0x0F, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x80}
	b := Descriptor{0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80}
	assert.Equal(t, 9, Hamming(a, b))
	assert.Equal(t, 0, Hamming(a, a))
	assert.Equal(t, Hamming(a, b), Hamming(b, a))
}

func TestHamming_LengthMismatchComparesPrefix(t *testing.T) {
	a := Descriptor{0xFF, 0xFF}
	b := Descriptor{0x0F}
	assert.Equal(t, 4, Hamming(a, b))
}

func TestDescriptorBit(t *testing.T) {
	d := Descriptor{0x01, 0x80}
	assert.True(t, d.Bit(0))
	assert.False(t, d.Bit(1))
	assert.True(t, d.Bit(15))
	assert.False(t, d.Bit(8))
}
