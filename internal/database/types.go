package database

import (
	"context"
	"time"
)

// StoredEmbedding represents a cached embedding
type StoredEmbedding struct {
	ContentHash string
	Model       string
	Embedding   []float32
	Dim         int
	CreatedAt   time.Time
}

// ModelCount is the number of cached embeddings for one provider
type ModelCount struct {
	Model string
	Count int
}

// EmbeddingCache stores embeddings keyed by image content hash and provider name.
// It satisfies embedding.Cache.
type EmbeddingCache interface {
	// GetEmbedding returns the cached vector, or false when there is none
	GetEmbedding(ctx context.Context, contentHash, model string) ([]float32, bool, error)
	// SaveEmbedding inserts or replaces a cached vector
	SaveEmbedding(ctx context.Context, contentHash, model string, embedding []float32) error
	// Count returns the number of cached embeddings per model, ordered by model
	Count(ctx context.Context) ([]ModelCount, error)
	// CountByHashes returns how many of the given content hashes are cached for model
	CountByHashes(ctx context.Context, model string, hashes []string) (int, error)
	// Clear removes cached embeddings of model, or all of them when model is empty.
	// It returns the number of removed rows.
	Clear(ctx context.Context, model string) (int64, error)
	// Close releases the connection pool
	Close() error
}
