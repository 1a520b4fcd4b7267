package tracking

import "image"

// ViewRects returns the rectangles registered for a template image of bounds
// b: the whole image, its centre quarter, its bottom-right quarter and its
// top-left quarter.
func ViewRects(b image.Rectangle) []image.Rectangle {
	w, h := b.Dx(), b.Dy()
	at := func(x0, y0, x1, y1 int) image.Rectangle {
		return image.Rect(x0, y0, x1, y1).Add(b.Min)
	}
	return []image.Rectangle{
		at(0, 0, w, h),
		at(w/4, h/4, 3*w/4, 3*h/4),
		at(w/2, h/2, w, h),
		at(0, 0, w/2, h/2),
	}
}

// AddTemplateViews registers every ViewRects rectangle of img and returns the
// template ids, existing or new. Invalid views are skipped.
func (t *Tracker) AddTemplateViews(img image.Image) ([]int, error) {
	if img == nil {
		return nil, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]int, 0, 4)
	for _, r := range ViewRects(img.Bounds()) {
		id, _, err := t.addTargetLocked(img, r)
		if err != nil {
			return ids, err
		}
		if id >= 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
