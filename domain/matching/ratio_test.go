package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassesRatio(t *testing.T) {
	cases := []struct {
		d1, d2 int
		want   bool
	}{
		{d1: 10, d2: 40, want: true},
		{d1: 29, d2: 40, want: true},
		{d1: 30, d2: 40, want: false}, // 30 == 0.75*40
		{d1: 31, d2: 40, want: false},
		{d1: 0, d2: 0, want: false},
		{d1: 0, d2: 1, want: true},
		{d1: 5, d2: 5, want: false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, PassesRatio(c.d1, c.d2, 0.75), "d1=%d d2=%d", c.d1, c.d2)
	}
}

func TestPassesRatio_ThresholdIsConfigurable(t *testing.T) {
	assert.False(t, PassesRatio(35, 40, 0.75))
	assert.True(t, PassesRatio(35, 40, 0.9))
}

func TestRatioTest(t *testing.T) {
	knn := [][]Neighbor{
		{{Template: 0, Train: 3, Distance: 10}, {Template: 1, Train: 0, Distance: 60}},
		{{Template: 1, Train: 2, Distance: 50}, {Template: 0, Train: 1, Distance: 55}},
		{{Template: 2, Train: 7, Distance: 4}},
		nil,
		{{Template: 1, Train: 5, Distance: 8}, {Template: 1, Train: 6, Distance: 70}},
	}
	got := RatioTest(knn, 0.75)
	require.Len(t, got, 2)
	assert.Equal(t, Match{Query: 0, Template: 0, Train: 3, Distance: 10}, got[0])
	assert.Equal(t, Match{Query: 4, Template: 1, Train: 5, Distance: 8}, got[1])
}

func TestGroupByTemplate(t *testing.T) {
	matches := []Match{
		{Query: 0, Template: 2},
		{Query: 1, Template: 0},
		{Query: 2, Template: 2},
		{Query: 3, Template: 1},
		{Query: 4, Template: 0},
	}
	groups := GroupByTemplate(matches)
	require.Len(t, groups, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{groups[0].Template, groups[1].Template, groups[2].Template})
	assert.Equal(t, []int{1, 4}, []int{groups[0].Matches[0].Query, groups[0].Matches[1].Query})
	assert.Len(t, groups[1].Matches, 1)
	assert.Equal(t, []int{0, 2}, []int{groups[2].Matches[0].Query, groups[2].Matches[1].Query})
}

func TestGroupByTemplate_Empty(t *testing.T) {
	assert.Empty(t, GroupByTemplate(nil))
}
