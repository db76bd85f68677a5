package engine

import "math"

// CosineDistance computes 1 - cosine similarity between two vectors.
// Returns a value between 0 (same direction) and 2 (opposite).
// The distance is 1 when either vector has zero norm or the lengths differ.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1.0
	}

	// A single sqrt of the product keeps d(u, u) exactly 0 and d symmetric.
	similarity := dotProduct / math.Sqrt(normA*normB)
	// Clamp to [-1, 1] to handle floating point errors.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}
