// Package engine groups photo embeddings into density-connected clusters and
// ranks the members of every cluster by quality.
//
// The package is pure: it performs no I/O, holds no global state and never
// retains references to caller data after a call returns. Every call
// clusters a complete batch from scratch.
package engine

import "fmt"

// Quality is a non-negative quality score that may be absent when the
// upstream scorer failed. Absent scores rank as 0, after any real 0 score.
type Quality struct {
	Value  float64
	Absent bool
}

// Score returns a present quality score.
func Score(v float64) Quality {
	return Quality{Value: v}
}

// Unscored returns an absent quality score.
func Unscored() Quality {
	return Quality{Absent: true}
}

// Effective returns the value used for ordering.
func (q Quality) Effective() float64 {
	if q.Absent {
		return 0
	}
	return q.Value
}

// Item is a single photo in a batch.
type Item struct {
	ID        string
	Embedding []float32
	Quality   Quality
}

// Label is either a cluster id or Noise.
type Label struct {
	id    int
	noise bool
}

// Noise is the label of items that belong to no cluster.
var Noise = Label{id: -1, noise: true}

// ClusterLabel returns the label for cluster n. n must be non-negative.
func ClusterLabel(n int) Label {
	if n < 0 {
		panic(fmt.Sprintf("engine: negative cluster id %d", n))
	}
	return Label{id: n}
}

// IsNoise reports whether l is the noise label.
func (l Label) IsNoise() bool {
	return l.noise
}

// Cluster returns the cluster id and true, or (0, false) for Noise.
func (l Label) Cluster() (int, bool) {
	if l.noise {
		return 0, false
	}
	return l.id, true
}

func (l Label) String() string {
	if l.noise {
		return "noise"
	}
	return fmt.Sprintf("cluster(%d)", l.id)
}

// Member is a ranked item reference.
type Member struct {
	ID      string
	Quality Quality
}

// RankedCluster is a cluster with members sorted by quality, best first.
type RankedCluster struct {
	ID          int
	Members     []Member
	Recommended Member
}

// ClusterResult is an assembled cluster with members projected to caller records.
type ClusterResult[R any] struct {
	ID          int
	Members     []R
	Recommended R
}

// Result is the final output of a clustering run. It is owned by the caller.
type Result[R any] struct {
	Clusters    []ClusterResult[R]
	Unclustered []R
}

// Params are the density parameters of the clusterer.
type Params struct {
	Eps        float64
	MinSamples int
}

// Default density parameters. They are empirical and configurable.
const (
	DefaultEps        = 0.3
	DefaultMinSamples = 2
)

// DefaultParams returns the default clustering parameters.
func DefaultParams() Params {
	return Params{Eps: DefaultEps, MinSamples: DefaultMinSamples}
}
