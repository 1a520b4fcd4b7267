package capture

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// CenteredRect returns a square of side size centred at (cx, cy), clamped to
// b. The result is at least 1x1 whenever b is non-empty.
func CenteredRect(b image.Rectangle, cx, cy, size int) image.Rectangle {
	if b.Empty() {
		return image.Rectangle{}
	}
	if size < 1 {
		size = 1
	}
	half := size / 2
	x0 := max(cx-half, b.Min.X)
	y0 := max(cy-half, b.Min.Y)
	x0 = min(x0, b.Max.X-1)
	y0 = min(y0, b.Max.Y-1)
	w := max(min(size, b.Max.X-x0), 1)
	h := max(min(size, b.Max.Y-y0), 1)
	return image.Rect(x0, y0, x0+w, y0+h)
}

// ParseRegion parses a template region inside bounds b. It accepts either
// "x,y,w,h" or "cx,cy,size"; the latter is resolved with CenteredRect.
func ParseRegion(s string, b image.Rectangle) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("region %q: want x,y,w,h or cx,cy,size", s)
	}
	v := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	if len(v) == 3 {
		if v[2] <= 0 {
			return image.Rectangle{}, errors.New("region: size must be positive")
		}
		return CenteredRect(b, v[0], v[1], v[2]), nil
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, errors.New("region: width and height must be positive")
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}
