// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/joeypohie/photorank/internal/database"
)

type cacheKey struct {
	hash  string
	model string
}

// MockEmbeddingCache is an in-memory implementation of database.EmbeddingCache
type MockEmbeddingCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]database.StoredEmbedding
	closed  bool

	// Call counters
	Gets  int
	Saves int

	// Error injection
	GetError   error
	SaveError  error
	CountError error
	ClearError error
}

// NewMockEmbeddingCache creates a new mock embedding cache
func NewMockEmbeddingCache() *MockEmbeddingCache {
	return &MockEmbeddingCache{
		entries: make(map[cacheKey]database.StoredEmbedding),
	}
}

// GetEmbedding returns a copy of the cached vector
func (m *MockEmbeddingCache) GetEmbedding(_ context.Context, contentHash, model string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	e, ok := m.entries[cacheKey{contentHash, model}]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(e.Embedding), true, nil
}

// SaveEmbedding stores a copy of embedding
func (m *MockEmbeddingCache) SaveEmbedding(_ context.Context, contentHash, model string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.SaveError != nil {
		return m.SaveError
	}
	m.entries[cacheKey{contentHash, model}] = database.StoredEmbedding{
		ContentHash: contentHash,
		Model:       model,
		Embedding:   slices.Clone(embedding),
		Dim:         len(embedding),
		CreatedAt:   time.Now(),
	}
	return nil
}

// Count returns the number of entries per model, ordered by model
func (m *MockEmbeddingCache) Count(_ context.Context) ([]database.ModelCount, error) {
	if m.CountError != nil {
		return nil, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	perModel := make(map[string]int)
	for k := range m.entries {
		perModel[k.model]++
	}
	counts := make([]database.ModelCount, 0, len(perModel))
	for model, n := range perModel {
		counts = append(counts, database.ModelCount{Model: model, Count: n})
	}
	slices.SortFunc(counts, func(a, b database.ModelCount) int {
		return strings.Compare(a.Model, b.Model)
	})
	return counts, nil
}

// CountByHashes counts the given hashes cached for model
func (m *MockEmbeddingCache) CountByHashes(_ context.Context, model string, hashes []string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, h := range hashes {
		if _, ok := m.entries[cacheKey{h, model}]; ok {
			n++
		}
	}
	return n, nil
}

// Clear removes entries of model, or all when model is empty
func (m *MockEmbeddingCache) Clear(_ context.Context, model string) (int64, error) {
	if m.ClearError != nil {
		return 0, m.ClearError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.entries {
		if model == "" || k.model == model {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Close marks the cache closed
func (m *MockEmbeddingCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called
func (m *MockEmbeddingCache) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

var _ database.EmbeddingCache = (*MockEmbeddingCache)(nil)
