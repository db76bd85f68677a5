package engine

import (
	"math/rand"
	"slices"

	"github.com/coder/hnsw"
)

// HNSW graph parameters for image embeddings.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100

	// HNSWInitialCandidates is the first k requested per range query. The
	// query doubles k while every returned candidate is still within eps.
	HNSWInitialCandidates = 32

	// hnswSeed fixes level generation so repeated runs build the same graph.
	hnswSeed = 1
)

// HNSWIndex returns a builder for an approximate index backed by an HNSW graph.
// Candidates are re-checked with the exact CosineDistance, so the index can
// only miss neighbors, never invent them.
func HNSWIndex() IndexBuilder {
	return func(vectors [][]float32) (NeighborIndex, error) {
		g := hnsw.NewGraph[int]()
		g.M = HNSWMaxNeighbors
		g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
		g.EfSearch = HNSWEfSearch
		g.Distance = hnsw.CosineDistance
		g.Rng = rand.New(rand.NewSource(hnswSeed)) //nolint:gosec // reproducible graph layout

		for i, v := range vectors {
			g.Add(hnsw.MakeNode(i, v))
		}
		return &hnswIndex{graph: g, vectors: vectors}, nil
	}
}

type hnswIndex struct {
	graph   *hnsw.Graph[int]
	vectors [][]float32
}

// Neighbors implements NeighborIndex.
func (h *hnswIndex) Neighbors(i int, eps float64) []int {
	n := len(h.vectors)
	query := h.vectors[i]

	k := min(HNSWInitialCandidates, n)
	for {
		candidates := h.graph.Search(query, k)

		out := []int{i}
		saturated := len(candidates) > 0
		for _, c := range candidates {
			if c.Key == i {
				continue
			}
			if CosineDistance(query, h.vectors[c.Key]) <= eps {
				out = append(out, c.Key)
			} else {
				saturated = false
			}
		}

		// Every candidate matched, so more may lie beyond k.
		if saturated && k < n {
			k = min(k*2, n)
			continue
		}

		slices.Sort(out)
		return slices.Compact(out)
	}
}
