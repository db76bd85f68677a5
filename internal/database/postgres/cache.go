package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/joeypohie/photorank/internal/database"
)

// EmbeddingCache provides PostgreSQL-backed embedding caching
type EmbeddingCache struct {
	pool *Pool
}

// NewEmbeddingCache creates a new PostgreSQL embedding cache
func NewEmbeddingCache(pool *Pool) *EmbeddingCache {
	return &EmbeddingCache{pool: pool}
}

// GetEmbedding retrieves a cached embedding
func (c *EmbeddingCache) GetEmbedding(ctx context.Context, contentHash, model string) ([]float32, bool, error) {
	var vec pgvector.Vector
	err := c.pool.QueryRow(ctx,
		"SELECT embedding FROM embedding_cache WHERE content_hash = $1 AND model = $2",
		contentHash, model,
	).Scan(&vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cached embedding: %w", err)
	}
	return vec.Slice(), true, nil
}

// Get retrieves the full cache row, returns nil if not found
func (c *EmbeddingCache) Get(ctx context.Context, contentHash, model string) (*database.StoredEmbedding, error) {
	emb := database.StoredEmbedding{ContentHash: contentHash, Model: model}
	var vec pgvector.Vector
	err := c.pool.QueryRow(ctx, `
		SELECT embedding, dim, created_at
		FROM embedding_cache
		WHERE content_hash = $1 AND model = $2
	`, contentHash, model).Scan(&vec, &emb.Dim, &emb.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cached embedding: %w", err)
	}
	emb.Embedding = vec.Slice()
	return &emb, nil
}

// SaveEmbedding inserts or replaces a cached embedding
func (c *EmbeddingCache) SaveEmbedding(ctx context.Context, contentHash, model string, embedding []float32) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO embedding_cache (content_hash, model, embedding, dim, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (content_hash, model) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			dim = EXCLUDED.dim,
			created_at = NOW()
	`, contentHash, model, pgvector.NewVector(embedding), len(embedding))
	if err != nil {
		return fmt.Errorf("save cached embedding: %w", err)
	}
	return nil
}

// Count returns the number of cached embeddings per model
func (c *EmbeddingCache) Count(ctx context.Context) ([]database.ModelCount, error) {
	rows, err := c.pool.Query(ctx, "SELECT model, COUNT(*) FROM embedding_cache GROUP BY model ORDER BY model")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []database.ModelCount
	for rows.Next() {
		var mc database.ModelCount
		if err := rows.Scan(&mc.Model, &mc.Count); err != nil {
			return nil, fmt.Errorf("scan model count: %w", err)
		}
		counts = append(counts, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model counts: %w", err)
	}
	return counts, nil
}

// CountByHashes returns how many of the given content hashes are cached for model
func (c *EmbeddingCache) CountByHashes(ctx context.Context, model string, hashes []string) (int, error) {
	if len(hashes) == 0 {
		return 0, nil
	}
	var count int
	err := c.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM embedding_cache WHERE model = $1 AND content_hash = ANY($2)",
		model, pq.Array(hashes),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cached embeddings by hashes: %w", err)
	}
	return count, nil
}

// Clear removes cached embeddings of model, or all when model is empty
func (c *EmbeddingCache) Clear(ctx context.Context, model string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if model == "" {
		res, err = c.pool.Exec(ctx, "DELETE FROM embedding_cache")
	} else {
		res, err = c.pool.Exec(ctx, "DELETE FROM embedding_cache WHERE model = $1", model)
	}
	if err != nil {
		return 0, fmt.Errorf("clear embedding cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared rows: %w", err)
	}
	return n, nil
}

// Close closes the underlying pool
func (c *EmbeddingCache) Close() error {
	return c.pool.Close()
}

var _ database.EmbeddingCache = (*EmbeddingCache)(nil)
