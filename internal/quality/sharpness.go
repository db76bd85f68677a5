package quality

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/joeypohie/photorank/internal/imgutil"
)

// SharpnessScorer scores images by the variance of their Laplacian.
type SharpnessScorer struct {
	weights Weights
}

// NewSharpnessScorer creates a sharpness-only scorer.
func NewSharpnessScorer(w Weights) *SharpnessScorer {
	return &SharpnessScorer{weights: w}
}

// Name implements Scorer.
func (s *SharpnessScorer) Name() string {
	return "sharpness"
}

// Score implements Scorer. The result is min(variance/norm, 1) * scale.
func (s *SharpnessScorer) Score(ctx context.Context, imageData []byte) (float64, error) {
	sharpness, err := normalizedSharpness(ctx, imageData, s.weights.SharpnessNorm)
	if err != nil {
		return 0, err
	}
	return sharpness * s.weights.Scale, nil
}

func normalizedSharpness(ctx context.Context, imageData []byte, norm float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	img, _, err := imgutil.Decode(imageData)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScoringFailed, err)
	}

	variance := LaplacianVariance(img)
	if norm <= 0 {
		return 0, fmt.Errorf("%w: sharpness norm must be > 0", ErrScoringFailed)
	}
	return min(variance/norm, 1), nil
}

// LaplacianVariance returns the variance of the 4-neighbor Laplacian of the
// grayscale image. Borders are mirrored without repeating the edge pixel.
func LaplacianVariance(img image.Image) float64 {
	gray := imaging.Grayscale(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	at := func(x, y int) float64 {
		x = reflect101(x, w)
		y = reflect101(y, h)
		return float64(gray.Pix[y*gray.Stride+x*4])
	}

	var sum, sumSq float64
	for y := range h {
		for x := range w {
			lap := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += lap
			sumSq += lap * lap
		}
	}

	n := float64(w * h)
	mean := sum / n
	return max(sumSq/n-mean*mean, 0)
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - 2 - i
	}
	return i
}
