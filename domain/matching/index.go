package matching

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/soocke/planetrack-go/domain/features"
)

// ErrDescriptorLength is returned when descriptors of a different width than the
// ones already indexed are added.
var ErrDescriptorLength = errors.New("matching: descriptor length mismatch")

// IndexOptions configures the locality-sensitive hash tables.
type IndexOptions struct {
	Tables     int   // number of hash tables
	KeySize    int   // descriptor bits sampled per table key (<= 32)
	ProbeLevel int   // neighbouring buckets probed, by key bit flips (0..2)
	Seed       int64 // bit selection seed
}

// DefaultIndexOptions mirrors the usual FLANN LSH settings for ORB.
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{Tables: 6, KeySize: 12, ProbeLevel: 1, Seed: 1}
}

// Neighbor is one candidate returned by KnnMatch.
type Neighbor struct {
	Template int // tag of the descriptor set the neighbour belongs to
	Train    int // index of the descriptor inside its set
	Distance int // Hamming distance to the query
}

type entry struct {
	template int
	train    int
	desc     features.Descriptor
}

// Index is an approximate nearest-neighbour index over binary descriptors,
// tagged by template id. Each table hashes a fixed random subset of descriptor
// bits, so descriptors at small Hamming distance tend to share a bucket.
//
// Index's methods are concurrency safe.
type Index struct {
	sync.RWMutex

	opts    IndexOptions
	descLen int
	keyBits [][]int
	buckets []map[uint32][]int32
	entries []entry
	sets    int
}

// NewIndex returns an empty index.
func NewIndex(opts IndexOptions) *Index {
	d := DefaultIndexOptions()
	if opts.Tables <= 0 {
		opts.Tables = d.Tables
	}
	if opts.KeySize <= 0 || opts.KeySize > 32 {
		opts.KeySize = d.KeySize
	}
	if opts.ProbeLevel < 0 || opts.ProbeLevel > 2 {
		opts.ProbeLevel = d.ProbeLevel
	}
	x := &Index{opts: opts}
	x.reset()
	return x
}

func (x *Index) reset() {
	x.descLen = 0
	x.keyBits = nil
	x.entries = nil
	x.sets = 0
	x.buckets = make([]map[uint32][]int32, x.opts.Tables)
	for i := range x.buckets {
		x.buckets[i] = make(map[uint32][]int32)
	}
}

// Add appends a descriptor set and returns its tag, the next sequential id.
// An empty set still consumes an id.
func (x *Index) Add(descs []features.Descriptor) (int, error) {
	x.Lock()
	defer x.Unlock()

	for _, d := range descs {
		if len(d) == 0 || (x.descLen != 0 && len(d) != x.descLen) || (x.descLen == 0 && len(d) != len(descs[0])) {
			return -1, fmt.Errorf("%w: got %d bytes", ErrDescriptorLength, len(d))
		}
	}
	if x.keyBits == nil && len(descs) > 0 {
		x.descLen = len(descs[0])
		x.keyBits = selectBits(x.opts, x.descLen*8)
	}

	tag := x.sets
	x.sets++
	for train, d := range descs {
		idx := int32(len(x.entries))
		x.entries = append(x.entries, entry{template: tag, train: train, desc: d})
		for t, bits := range x.keyBits {
			k := hashKey(d, bits)
			x.buckets[t][k] = append(x.buckets[t][k], idx)
		}
	}
	return tag, nil
}

// KnnMatch returns, for each query descriptor, up to k nearest indexed
// descriptors sorted by distance (ties by insertion order). A query that finds
// fewer than k candidates gets fewer results.
func (x *Index) KnnMatch(query []features.Descriptor, k int) [][]Neighbor {
	x.RLock()
	defer x.RUnlock()

	out := make([][]Neighbor, len(query))
	if k <= 0 || len(x.entries) == 0 {
		return out
	}
	seen := make([]uint32, len(x.entries))
	var stamp uint32
	best := make([]scored, 0, k+1)
	for qi, q := range query {
		if len(q) != x.descLen {
			continue
		}
		stamp++
		best = best[:0]
		for t, bits := range x.keyBits {
			key := hashKey(q, bits)
			forEachProbe(key, len(bits), x.opts.ProbeLevel, func(probe uint32) {
				for _, idx := range x.buckets[t][probe] {
					if seen[idx] == stamp {
						continue
					}
					seen[idx] = stamp
					best = insertScored(best, scored{idx: idx, dist: features.Hamming(q, x.entries[idx].desc)}, k)
				}
			})
		}
		if len(best) == 0 {
			continue
		}
		res := make([]Neighbor, len(best))
		for i, s := range best {
			e := x.entries[s.idx]
			res[i] = Neighbor{Template: e.template, Train: e.train, Distance: s.dist}
		}
		out[qi] = res
	}
	return out
}

// Clear drops every indexed descriptor; the next Add gets tag 0.
func (x *Index) Clear() {
	x.Lock()
	defer x.Unlock()
	x.reset()
}

// Len returns the number of indexed descriptors.
func (x *Index) Len() int {
	x.RLock()
	defer x.RUnlock()
	return len(x.entries)
}

// Sets returns the number of descriptor sets added since the last Clear.
func (x *Index) Sets() int {
	x.RLock()
	defer x.RUnlock()
	return x.sets
}

type scored struct {
	idx  int32
	dist int
}

// insertScored keeps best sorted by (dist, idx) and at most k long.
func insertScored(best []scored, s scored, k int) []scored {
	pos := sort.Search(len(best), func(i int) bool {
		if best[i].dist != s.dist {
			return best[i].dist > s.dist
		}
		return best[i].idx > s.idx
	})
	if pos >= k {
		return best
	}
	best = append(best, scored{})
	copy(best[pos+1:], best[pos:])
	best[pos] = s
	if len(best) > k {
		best = best[:k]
	}
	return best
}

// selectBits draws KeySize distinct bit positions per table.
func selectBits(opts IndexOptions, nbits int) [][]int {
	rng := rand.New(rand.NewSource(opts.Seed))
	size := opts.KeySize
	if size > nbits {
		size = nbits
	}
	out := make([][]int, opts.Tables)
	for t := range out {
		perm := rng.Perm(nbits)
		bits := append([]int(nil), perm[:size]...)
		sort.Ints(bits)
		out[t] = bits
	}
	return out
}

func hashKey(d features.Descriptor, bits []int) uint32 {
	var k uint32
	for i, b := range bits {
		if d.Bit(b) {
			k |= 1 << uint(i)
		}
	}
	return k
}

// forEachProbe visits key and every key within level bit flips of it.
func forEachProbe(key uint32, size, level int, fn func(uint32)) {
	fn(key)
	if level >= 1 {
		for i := 0; i < size; i++ {
			fn(key ^ (1 << uint(i)))
		}
	}
	if level >= 2 {
		for i := 0; i < size; i++ {
			for j := i + 1; j < size; j++ {
				fn(key ^ (1 << uint(i)) ^ (1 << uint(j)))
			}
		}
	}
}
