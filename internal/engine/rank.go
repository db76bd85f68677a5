package engine

import (
	"cmp"
	"fmt"
	"slices"
)

// QualityFunc looks up the quality of an item. The bool result is false when
// the id has no entry at all, which is different from an absent score.
type QualityFunc func(id string) (Quality, bool)

// QualityOf returns a QualityFunc backed by the qualities of items.
func QualityOf(items []Item) QualityFunc {
	m := make(map[string]Quality, len(items))
	for _, item := range items {
		m[item.ID] = item.Quality
	}
	return func(id string) (Quality, bool) {
		q, ok := m[id]
		return q, ok
	}
}

// Rank orders the members of every group by quality, best first.
//
// Group members must be listed in batch order, as Assignment.Groups does;
// equal qualities keep that order. An absent score ranks as 0 and after any
// real 0. Empty groups are dropped. Noise members are returned separately
// and carry no recommendation.
func Rank(groups []Group, qualityOf QualityFunc) ([]RankedCluster, []Member, error) {
	var (
		clusters    []RankedCluster
		unclustered []Member
	)

	for _, g := range groups {
		members := make([]Member, 0, len(g.Members))
		for _, id := range g.Members {
			q, ok := qualityOf(id)
			if !ok {
				return nil, nil, fmt.Errorf("%w: no quality entry for %q", ErrMissingData, id)
			}
			members = append(members, Member{ID: id, Quality: q})
		}
		if len(members) == 0 {
			continue
		}

		slices.SortStableFunc(members, compareMembers)

		if g.Label.IsNoise() {
			unclustered = append(unclustered, members...)
			continue
		}
		c, _ := g.Label.Cluster()
		clusters = append(clusters, RankedCluster{
			ID:          c,
			Members:     members,
			Recommended: members[0],
		})
	}

	if unclustered == nil {
		unclustered = []Member{}
	}
	return clusters, unclustered, nil
}

// compareMembers sorts by effective quality descending, present before absent.
func compareMembers(a, b Member) int {
	if c := cmp.Compare(b.Quality.Effective(), a.Quality.Effective()); c != 0 {
		return c
	}
	switch {
	case a.Quality.Absent == b.Quality.Absent:
		return 0
	case a.Quality.Absent:
		return 1
	default:
		return -1
	}
}
