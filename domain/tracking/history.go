package tracking

import (
	"sync"
	"sync/atomic"
	"time"
)

// History keeps the results of the last Capacity Track calls, newest first.
// Writers are serialised; readers load an immutable snapshot and never see a
// partially written entry.
type History struct {
	mu       sync.Mutex
	capacity int
	sequence uint64
	snapshot atomic.Pointer[[]Entry]
}

// NewHistory returns a history holding capacity placeholder entries.
// capacity below 1 is raised to 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	h := &History{capacity: capacity}
	h.snapshot.Store(placeholders(capacity))
	return h
}

func placeholders(n int) *[]Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Objects: []TrackedObject{}}
	}
	return &entries
}

// Push inserts a new entry at the front and drops whatever falls past capacity.
// objects is copied.
func (h *History) Push(objects []TrackedObject) Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sequence++
	e := Entry{Sequence: h.sequence, TrackedAt: time.Now(), Objects: cloneObjects(objects)}

	prev := *h.snapshot.Load()
	next := make([]Entry, 0, h.capacity)
	next = append(next, e)
	next = append(next, prev...)
	if len(next) > h.capacity {
		next = next[:h.capacity]
	}
	h.snapshot.Store(&next)
	return e.clone()
}

// Latest returns a copy of the newest entry.
func (h *History) Latest() Entry {
	return (*h.snapshot.Load())[0].clone()
}

// Entries returns copies of all entries, newest first.
func (h *History) Entries() []Entry {
	cur := *h.snapshot.Load()
	out := make([]Entry, len(cur))
	for i, e := range cur {
		out[i] = e.clone()
	}
	return out
}

func (e Entry) clone() Entry {
	e.Objects = cloneObjects(e.Objects)
	return e
}

// cloneObjects copies objects and their correspondence slices. The result is
// never nil.
func cloneObjects(objects []TrackedObject) []TrackedObject {
	out := make([]TrackedObject, len(objects))
	copy(out, objects)
	for i := range out {
		if out[i].Correspondences != nil {
			out[i].Correspondences = append([]Correspondence(nil), out[i].Correspondences...)
		}
	}
	return out
}

func (h *History) Len() int { return len(*h.snapshot.Load()) }

func (h *History) Capacity() int { return h.capacity }

// Clear resets the history to placeholder entries. Sequence numbers keep
// increasing across a Clear.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot.Store(placeholders(h.capacity))
}
