// Package embedding turns images into fixed-length vectors for clustering.
package embedding

import (
	"context"
	"errors"
)

// ErrExtractionFailed marks an image that could not be embedded. Callers drop
// such photos from the batch instead of aborting it.
var ErrExtractionFailed = errors.New("embedding extraction failed")

// Provider maps an image to an embedding. All vectors returned by one
// provider share the same dimension.
type Provider interface {
	Name() string
	Embed(ctx context.Context, imageData []byte) ([]float32, error)
}
