package tracking

import (
	"image"
	"reflect"
)

// Registry owns the registered templates. IDs are positions in registration
// order and are never reused until Clear.
// Not safe for concurrent use; Tracker serialises access.
type Registry struct {
	templates []*Template
}

func NewRegistry() *Registry { return &Registry{} }

// Add stores t under the next id and returns it.
func (r *Registry) Add(t Template) int {
	t.ID = len(r.templates)
	r.templates = append(r.templates, &t)
	return t.ID
}

// Find returns the id of a template registered with the same image value and
// rectangle.
func (r *Registry) Find(img image.Image, rect image.Rectangle) (int, bool) {
	for _, t := range r.templates {
		if t.Rect == rect && sameImage(t.Image, img) {
			return t.ID, true
		}
	}
	return -1, false
}

// Get returns the template with the given id.
func (r *Registry) Get(id int) (*Template, bool) {
	if id < 0 || id >= len(r.templates) {
		return nil, false
	}
	return r.templates[id], true
}

func (r *Registry) Len() int { return len(r.templates) }

func (r *Registry) Clear() { r.templates = nil }

// removeLast undoes the most recent Add.
func (r *Registry) removeLast() {
	if n := len(r.templates); n > 0 {
		r.templates[n-1] = nil
		r.templates = r.templates[:n-1]
	}
}

// sameImage compares image identity. Pointer images compare by address;
// values of non-comparable types never match.
func sameImage(a, b image.Image) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
