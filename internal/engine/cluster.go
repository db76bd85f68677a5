package engine

import (
	"math"
	"slices"
)

// Option configures a clustering run.
type Option func(*options)

type options struct {
	index IndexBuilder
}

// WithNeighborIndex replaces the default brute-force neighbor index.
func WithNeighborIndex(b IndexBuilder) Option {
	return func(o *options) {
		if b != nil {
			o.index = b
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{index: BruteForce()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Group is the ordered member list of one label.
type Group struct {
	Label   Label
	Members []string
}

// Assignment maps every item id of a batch to its label.
type Assignment struct {
	ids      []string
	labels   []Label
	pos      map[string]int
	clusters int
}

// Len returns the number of assigned items.
func (a *Assignment) Len() int {
	return len(a.ids)
}

// NumClusters returns the number of non-noise clusters.
func (a *Assignment) NumClusters() int {
	return a.clusters
}

// Label returns the label of id.
func (a *Assignment) Label(id string) (Label, bool) {
	i, ok := a.pos[id]
	if !ok {
		return Label{}, false
	}
	return a.labels[i], true
}

// IDs returns the assigned ids in batch order.
func (a *Assignment) IDs() []string {
	return slices.Clone(a.ids)
}

// Groups rebuilds the ordered groups: clusters by ascending id, then the
// noise group if any item is noise. Members keep batch order.
func (a *Assignment) Groups() []Group {
	groups := make([]Group, a.clusters)
	for c := range groups {
		groups[c].Label = ClusterLabel(c)
	}
	var noise []string
	for i, id := range a.ids {
		if c, ok := a.labels[i].Cluster(); ok {
			groups[c].Members = append(groups[c].Members, id)
		} else {
			noise = append(noise, id)
		}
	}
	if len(noise) > 0 {
		groups = append(groups, Group{Label: Noise, Members: noise})
	}
	return groups
}

// Cluster partitions items with DBSCAN over cosine distance.
//
// An item is a core point when at least minSamples items, itself included,
// lie within eps. Cluster ids are dense and follow discovery order while
// scanning items in batch order. Cluster never modifies items.
func Cluster(items []Item, eps float64, minSamples int, opts ...Option) (*Assignment, error) {
	if math.IsNaN(eps) || eps <= 0 {
		return nil, invalidInput("eps must be > 0, got %v", eps)
	}
	if minSamples < 1 {
		return nil, invalidInput("minSamples must be >= 1, got %d", minSamples)
	}

	ids, vectors, err := snapshotBatch(items)
	if err != nil {
		return nil, err
	}

	a := &Assignment{
		ids:    ids,
		labels: make([]Label, len(ids)),
		pos:    make(map[string]int, len(ids)),
	}
	for i, id := range ids {
		a.pos[id] = i
	}

	if len(ids) == 0 {
		return a, nil
	}

	o := buildOptions(opts)
	idx, err := o.index(vectors)
	if err != nil {
		return nil, err
	}

	raw, clusters := dbscan(idx, len(ids), eps, minSamples)
	for i, c := range raw {
		if c == labelNoise {
			a.labels[i] = Noise
		} else {
			a.labels[i] = ClusterLabel(c)
		}
	}
	a.clusters = clusters
	return a, nil
}

// snapshotBatch validates items and copies their ids and embeddings.
func snapshotBatch(items []Item) ([]string, [][]float32, error) {
	ids := make([]string, len(items))
	vectors := make([][]float32, len(items))
	seen := make(map[string]struct{}, len(items))

	for i, item := range items {
		if _, dup := seen[item.ID]; dup {
			return nil, nil, invalidInput("duplicate id %q", item.ID)
		}
		seen[item.ID] = struct{}{}

		if i > 0 && len(item.Embedding) != len(items[0].Embedding) {
			return nil, nil, &DimensionMismatchError{
				ID:       item.ID,
				Expected: len(items[0].Embedding),
				Actual:   len(item.Embedding),
			}
		}
		for _, x := range item.Embedding {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return nil, nil, invalidInput("non-finite embedding component for %q", item.ID)
			}
		}

		ids[i] = item.ID
		vectors[i] = slices.Clone(item.Embedding)
	}
	return ids, vectors, nil
}

const (
	labelUndefined = -2
	labelNoise     = -1
)

// dbscan returns a label per position and the number of clusters found.
func dbscan(idx NeighborIndex, n int, eps float64, minSamples int) ([]int, int) {
	labels := make([]int, n)
	for i := range labels {
		labels[i] = labelUndefined
	}

	clusterID := 0
	for i := range n {
		if labels[i] != labelUndefined {
			continue
		}

		neighbors := idx.Neighbors(i, eps)
		if len(neighbors) < minSamples {
			labels[i] = labelNoise
			continue
		}

		c := clusterID
		clusterID++
		labels[i] = c

		// FIFO expansion keeps discovery order stable.
		seed := make([]int, 0, len(neighbors))
		for _, j := range neighbors {
			if j != i {
				seed = append(seed, j)
			}
		}

		for head := 0; head < len(seed); head++ {
			q := seed[head]

			if labels[q] == labelNoise {
				// Previously rejected as core; it becomes a border point.
				labels[q] = c
				continue
			}
			if labels[q] != labelUndefined {
				continue
			}
			labels[q] = c

			qNeighbors := idx.Neighbors(q, eps)
			if len(qNeighbors) < minSamples {
				continue
			}
			for _, j := range qNeighbors {
				if labels[j] == labelUndefined || labels[j] == labelNoise {
					seed = append(seed, j)
				}
			}
		}
	}

	return labels, clusterID
}
