package matching

import "sort"

// Match is a frame descriptor paired with its nearest template descriptor.
type Match struct {
	Query    int // frame keypoint index
	Template int // template id of the nearest neighbour
	Train    int // template keypoint index
	Distance int
}

// Group is the set of matches whose nearest neighbour belongs to one template.
type Group struct {
	Template int
	Matches  []Match
}

// PassesRatio reports whether a nearest distance d1 is distinct enough from the
// second-nearest d2: d1 < threshold*d2.
func PassesRatio(d1, d2 int, threshold float64) bool {
	return float64(d1) < threshold*float64(d2)
}

// RatioTest keeps the nearest neighbour of every query that has two neighbours
// passing PassesRatio. Queries with fewer than two neighbours are dropped.
func RatioTest(knn [][]Neighbor, threshold float64) []Match {
	out := make([]Match, 0, len(knn))
	for q, nn := range knn {
		if len(nn) < 2 {
			continue
		}
		if !PassesRatio(nn[0].Distance, nn[1].Distance, threshold) {
			continue
		}
		out = append(out, Match{Query: q, Template: nn[0].Template, Train: nn[0].Train, Distance: nn[0].Distance})
	}
	return out
}

// GroupByTemplate buckets matches by template id. Groups are ordered by id and
// keep the input order of their matches.
func GroupByTemplate(matches []Match) []Group {
	byID := make(map[int]int)
	var groups []Group
	for _, m := range matches {
		i, ok := byID[m.Template]
		if !ok {
			i = len(groups)
			byID[m.Template] = i
			groups = append(groups, Group{Template: m.Template})
		}
		groups[i].Matches = append(groups[i].Matches, m)
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].Template < groups[b].Template })
	return groups
}
