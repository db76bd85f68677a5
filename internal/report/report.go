// Package report converts engine results to the JSON wire format and to the
// console listing.
package report

import (
	"github.com/joeypohie/photorank/internal/engine"
)

// NoiseClusterID is the wire id of the noise label.
const NoiseClusterID = -1

// Photo is a photo reference on the wire. Score is null when scoring failed.
type Photo struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	URL      string   `json:"url,omitempty"`
	Score    *float64 `json:"score"`
}

// Cluster is a ranked group of similar photos.
type Cluster struct {
	ID               int     `json:"id"`
	Photos           []Photo `json:"photos"`
	RecommendedPhoto Photo   `json:"recommendedPhoto"`
}

// Skipped is a photo left out of the batch because it could not be embedded.
type Skipped struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// Result is the response of a processing run.
type Result struct {
	Clusters    []Cluster `json:"clusters"`
	Unclustered []Photo   `json:"unclustered"`
	Skipped     []Skipped `json:"skipped,omitempty"`
}

// Assignment is one line of the flat label listing.
type Assignment struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Label    int      `json:"label"`
	Score    *float64 `json:"score"`
}

// ScoreOf returns nil for an absent quality.
func ScoreOf(q engine.Quality) *float64 {
	if q.Absent {
		return nil
	}
	v := q.Value
	return &v
}

// ClusterID translates a label to its wire id.
func ClusterID(l engine.Label) int {
	if id, ok := l.Cluster(); ok {
		return id
	}
	return NoiseClusterID
}

// FromEngine converts an assembled engine result.
func FromEngine(res engine.Result[Photo], skipped []Skipped) Result {
	out := Result{
		Clusters:    make([]Cluster, 0, len(res.Clusters)),
		Unclustered: res.Unclustered,
		Skipped:     skipped,
	}
	if out.Unclustered == nil {
		out.Unclustered = []Photo{}
	}
	for _, c := range res.Clusters {
		out.Clusters = append(out.Clusters, Cluster{
			ID:               c.ID,
			Photos:           c.Members,
			RecommendedPhoto: c.Recommended,
		})
	}
	return out
}

// Assignments lists every photo with its wire label in batch order.
// Photos not present in a are skipped.
func Assignments(a *engine.Assignment, photos map[string]Photo) []Assignment {
	out := make([]Assignment, 0, a.Len())
	for _, id := range a.IDs() {
		l, ok := a.Label(id)
		if !ok {
			continue
		}
		p := photos[id]
		out = append(out, Assignment{
			ID:       id,
			Filename: p.Filename,
			Label:    ClusterID(l),
			Score:    p.Score,
		})
	}
	return out
}
