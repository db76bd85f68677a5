package quality

import (
	"context"
	"fmt"
)

// ConfidenceSource returns a classifier's top-class confidence in [0, 1].
type ConfidenceSource interface {
	Confidence(ctx context.Context, imageData []byte) (float64, error)
}

// BlendedScorer combines classifier confidence with sharpness:
// (wc*confidence + ws*sharpness) * scale.
type BlendedScorer struct {
	source  ConfidenceSource
	weights Weights
}

// NewBlendedScorer creates a scorer that asks source for confidence.
func NewBlendedScorer(source ConfidenceSource, w Weights) *BlendedScorer {
	return &BlendedScorer{source: source, weights: w}
}

// Name implements Scorer.
func (s *BlendedScorer) Name() string {
	return "blended"
}

// Score implements Scorer.
func (s *BlendedScorer) Score(ctx context.Context, imageData []byte) (float64, error) {
	sharpness, err := normalizedSharpness(ctx, imageData, s.weights.SharpnessNorm)
	if err != nil {
		return 0, err
	}

	confidence, err := s.source.Confidence(ctx, imageData)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScoringFailed, err)
	}

	return (s.weights.Confidence*confidence + s.weights.Sharpness*sharpness) * s.weights.Scale, nil
}
