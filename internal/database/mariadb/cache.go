package mariadb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/joeypohie/photorank/internal/database"
)

// EmbeddingCache provides MariaDB-backed embedding caching. Vectors are
// stored as little-endian float32 blobs.
type EmbeddingCache struct {
	pool *Pool
}

// NewEmbeddingCache creates a new MariaDB embedding cache
func NewEmbeddingCache(pool *Pool) *EmbeddingCache {
	return &EmbeddingCache{pool: pool}
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding blob of %d bytes", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}

// GetEmbedding retrieves a cached embedding
func (c *EmbeddingCache) GetEmbedding(ctx context.Context, contentHash, model string) ([]float32, bool, error) {
	var blob []byte
	err := c.pool.db.QueryRowContext(ctx,
		"SELECT embedding FROM embedding_cache WHERE content_hash = ? AND model = ?",
		contentHash, model,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cached embedding: %w", err)
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// SaveEmbedding inserts or replaces a cached embedding
func (c *EmbeddingCache) SaveEmbedding(ctx context.Context, contentHash, model string, embedding []float32) error {
	_, err := c.pool.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (content_hash, model, embedding, dim)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE embedding = VALUES(embedding), dim = VALUES(dim), created_at = CURRENT_TIMESTAMP
	`, contentHash, model, encodeVector(embedding), len(embedding))
	if err != nil {
		return fmt.Errorf("save cached embedding: %w", err)
	}
	return nil
}

// Count returns the number of cached embeddings per model
func (c *EmbeddingCache) Count(ctx context.Context) ([]database.ModelCount, error) {
	rows, err := c.pool.db.QueryContext(ctx,
		"SELECT model, COUNT(*) FROM embedding_cache GROUP BY model ORDER BY model")
	if err != nil {
		return nil, fmt.Errorf("count cached embeddings: %w", err)
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
	args := make([]any, 0, len(hashes)+1)
	args = append(args, model)
	for _, h := range hashes {
		args = append(args, h)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(hashes)), ",")

	var count int
	err := c.pool.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM embedding_cache WHERE model = ? AND content_hash IN ("+placeholders+")",
		args...,
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
		res, err = c.pool.db.ExecContext(ctx, "DELETE FROM embedding_cache")
	} else {
		res, err = c.pool.db.ExecContext(ctx, "DELETE FROM embedding_cache WHERE model = ?", model)
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
