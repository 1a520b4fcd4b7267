package matching

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/planetrack-go/domain/features"
)

func randomDescriptors(rng *rand.Rand, n int) []features.Descriptor {
	out := make([]features.Descriptor, n)
	for i := range out {
		d := make(features.Descriptor, 32)
		rng.Read(d)
		out[i] = d
	}
	return out
}

// perturb flips nbits distinct random bits of a copy of d.
func perturb(rng *rand.Rand, d features.Descriptor, nbits int) features.Descriptor {
	out := append(features.Descriptor(nil), d...)
	for _, b := range rng.Perm(len(d) * 8)[:nbits] {
		out[b>>3] ^= 1 << uint(b&7)
	}
	return out
}

func TestIndex_AddAssignsSequentialTags(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x := NewIndex(DefaultIndexOptions())
	for want := 0; want < 3; want++ {
		tag, err := x.Add(randomDescriptors(rng, 10))
		require.NoError(t, err)
		assert.Equal(t, want, tag)
	}
	tag, err := x.Add(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, tag)
	assert.Equal(t, 4, x.Sets())
	assert.Equal(t, 30, x.Len())
}

func TestIndex_RejectsMixedLengths(t *testing.T) {
	x := NewIndex(DefaultIndexOptions())
	_, err := x.Add([]features.Descriptor{make(features.Descriptor, 32)})
	require.NoError(t, err)
	_, err = x.Add([]features.Descriptor{make(features.Descriptor, 16)})
	require.ErrorIs(t, err, ErrDescriptorLength)
	assert.Equal(t, 1, x.Sets())
}

func TestIndex_FindsExactAndNearDuplicates(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x := NewIndex(DefaultIndexOptions())
	a := randomDescriptors(rng, 200)
	b := randomDescriptors(rng, 200)
	_, err := x.Add(a)
	require.NoError(t, err)
	_, err = x.Add(b)
	require.NoError(t, err)

	query := []features.Descriptor{a[17], perturb(rng, b[42], 8)}
	knn := x.KnnMatch(query, 2)
	require.Len(t, knn, 2)

	require.NotEmpty(t, knn[0])
	assert.Equal(t, Neighbor{Template: 0, Train: 17, Distance: 0}, knn[0][0])

	require.NotEmpty(t, knn[1])
	assert.Equal(t, 1, knn[1][0].Template)
	assert.Equal(t, 42, knn[1][0].Train)
	assert.Equal(t, 8, knn[1][0].Distance)
}

func TestIndex_ResultsSortedAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := NewIndex(IndexOptions{Tables: 8, KeySize: 4, ProbeLevel: 2, Seed: 5})
	_, err := x.Add(randomDescriptors(rng, 300))
	require.NoError(t, err)

	for _, nn := range x.KnnMatch(randomDescriptors(rng, 20), 2) {
		assert.LessOrEqual(t, len(nn), 2)
		if len(nn) == 2 {
			assert.LessOrEqual(t, nn[0].Distance, nn[1].Distance)
		}
	}
}

func TestIndex_FewerCandidatesThanK(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	x := NewIndex(DefaultIndexOptions())
	d := randomDescriptors(rng, 1)
	_, err := x.Add(d)
	require.NoError(t, err)

	knn := x.KnnMatch(d, 2)
	require.Len(t, knn, 1)
	assert.Len(t, knn[0], 1)
}

func TestIndex_EmptyAndClear(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x := NewIndex(DefaultIndexOptions())
	q := randomDescriptors(rng, 3)
	knn := x.KnnMatch(q, 2)
	require.Len(t, knn, 3)
	for _, nn := range knn {
		assert.Empty(t, nn)
	}

	_, err := x.Add(q)
	require.NoError(t, err)
	x.Clear()
	assert.Zero(t, x.Len())
	tag, err := x.Add(q)
	require.NoError(t, err)
	assert.Zero(t, tag)
}

func TestIndex_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	train := randomDescriptors(rng, 150)
	query := make([]features.Descriptor, 0, 50)
	for i := 0; i < 50; i++ {
		query = append(query, perturb(rng, train[i*3], 10))
	}

	run := func() [][]Neighbor {
		x := NewIndex(DefaultIndexOptions())
		_, err := x.Add(train)
		require.NoError(t, err)
		return x.KnnMatch(query, 2)
	}
	assert.Equal(t, run(), run())
}

func TestInsertScored(t *testing.T) {
	var best []scored
	for _, s := range []scored{{idx: 4, dist: 9}, {idx: 1, dist: 3}, {idx: 2, dist: 9}, {idx: 0, dist: 1}} {
		best = insertScored(best, s, 3)
	}
	assert.Equal(t, []scored{{idx: 0, dist: 1}, {idx: 1, dist: 3}, {idx: 2, dist: 9}}, best)
}
