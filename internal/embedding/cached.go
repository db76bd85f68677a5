package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
)

// Cache stores embeddings keyed by image content hash and model key.
type Cache interface {
	GetEmbedding(ctx context.Context, contentHash, model string) ([]float32, bool, error)
	SaveEmbedding(ctx context.Context, contentHash, model string, embedding []float32) error
}

// ModelKeyer is implemented by providers whose model is chosen remotely and
// may change between runs. An empty key means the model is not known yet.
type ModelKeyer interface {
	ModelKey() string
}

// CacheKey returns the model key embeddings of p are cached under, or "" if
// p cannot tell yet.
func CacheKey(p Provider) string {
	if k, ok := p.(ModelKeyer); ok {
		return k.ModelKey()
	}
	return p.Name()
}

// CachedProvider consults a Cache before calling the wrapped provider.
// Cache failures never fail an embedding; they are logged and skipped.
type CachedProvider struct {
	inner  Provider
	cache  Cache
	logger *slog.Logger

	mu  sync.Mutex
	dim int // dimension of the latest fresh embedding
}

// NewCachedProvider wraps inner with cache. A nil logger uses slog.Default().
func NewCachedProvider(inner Provider, cache Cache, logger *slog.Logger) *CachedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{inner: inner, cache: cache, logger: logger}
}

// Name implements Provider.
func (c *CachedProvider) Name() string {
	return c.inner.Name()
}

// ModelKey implements ModelKeyer.
func (c *CachedProvider) ModelKey() string {
	return CacheKey(c.inner)
}

// Embed implements Provider.
func (c *CachedProvider) Embed(ctx context.Context, imageData []byte) ([]float32, error) {
	key := ContentHash(imageData)

	if model := CacheKey(c.inner); model != "" {
		if vec, ok := c.lookup(ctx, key, model); ok {
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, imageData)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.dim = len(vec)
	c.mu.Unlock()

	model := CacheKey(c.inner)
	if model == "" {
		return vec, nil
	}
	if err := c.cache.SaveEmbedding(ctx, key, model, vec); err != nil {
		c.logger.Warn("embedding cache store failed", "hash", key, "error", err)
	}
	return vec, nil
}

// lookup returns a cached vector unless it disagrees with the dimension the
// provider currently produces.
func (c *CachedProvider) lookup(ctx context.Context, key, model string) ([]float32, bool) {
	cached, ok, err := c.cache.GetEmbedding(ctx, key, model)
	if err != nil {
		c.logger.Warn("embedding cache lookup failed", "hash", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	dim := c.dim
	c.mu.Unlock()
	if dim != 0 && len(cached) != dim {
		c.logger.Warn("dropping cached embedding with stale dimension",
			"hash", key, "cached_dim", len(cached), "dim", dim)
		return nil, false
	}
	return cached, true
}

// ContentHash returns the hex SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
