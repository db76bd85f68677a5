package engine

// NeighborIndex answers ε-range queries over the vectors of one batch.
type NeighborIndex interface {
	// Neighbors returns the positions of all vectors within eps of vector i,
	// including i itself, in ascending order.
	Neighbors(i int, eps float64) []int
}

// IndexBuilder builds a NeighborIndex over the vectors of a batch.
// The builder must not retain or modify vectors after it returns an error.
type IndexBuilder func(vectors [][]float32) (NeighborIndex, error)

// BruteForce returns a builder for an exact index backed by a full pairwise
// distance matrix. Build cost is O(n²) distance computations.
func BruteForce() IndexBuilder {
	return func(vectors [][]float32) (NeighborIndex, error) {
		return newMatrixIndex(vectors), nil
	}
}

// matrixIndex stores the lower triangle of the pairwise distance matrix.
type matrixIndex struct {
	n    int
	dist [][]float64 // dist[i][j] for j < i
}

func newMatrixIndex(vectors [][]float32) *matrixIndex {
	n := len(vectors)
	dist := make([][]float64, n)
	for i := range n {
		dist[i] = make([]float64, i)
		for j := range i {
			dist[i][j] = CosineDistance(vectors[i], vectors[j])
		}
	}
	return &matrixIndex{n: n, dist: dist}
}

func (m *matrixIndex) distance(i, j int) float64 {
	switch {
	case i == j:
		return 0
	case j < i:
		return m.dist[i][j]
	default:
		return m.dist[j][i]
	}
}

// Neighbors implements NeighborIndex.
func (m *matrixIndex) Neighbors(i int, eps float64) []int {
	var out []int
	for j := range m.n {
		if j == i || m.distance(i, j) <= eps {
			out = append(out, j)
		}
	}
	return out
}
