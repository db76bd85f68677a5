// Package quality scores how good a photo is, so the best shot of a group can
// be recommended.
package quality

import (
	"context"
	"errors"
)

// ErrScoringFailed marks an image that could not be scored. The photo stays
// in its cluster with an absent score.
var ErrScoringFailed = errors.New("quality scoring failed")

// Scorer maps an image to a non-negative quality score.
type Scorer interface {
	Name() string
	Score(ctx context.Context, imageData []byte) (float64, error)
}

// Weights control how raw metrics become a score.
type Weights struct {
	// Confidence is the weight of the classifier confidence in a blended score.
	Confidence float64
	// Sharpness is the weight of the normalized sharpness in a blended score.
	Sharpness float64
	// SharpnessNorm is the Laplacian variance that maps to a sharpness of 1.
	SharpnessNorm float64
	// Scale multiplies the final score.
	Scale float64
}

// DefaultWeights returns the empirical defaults: 70% confidence, 30%
// sharpness, variance normalized by 1000 and a 0-10 scale.
func DefaultWeights() Weights {
	return Weights{
		Confidence:    0.7,
		Sharpness:     0.3,
		SharpnessNorm: 1000,
		Scale:         10,
	}
}
