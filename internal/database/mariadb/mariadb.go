// Package mariadb stores cached embeddings in MariaDB or MySQL.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/joeypohie/photorank/internal/config"
	"github.com/joeypohie/photorank/internal/database"
)

func init() {
	database.RegisterBackend("mysql", open)
	database.RegisterBackend("mariadb", open)
}

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// DSN converts a mysql:// or mariadb:// URL into a driver DSN. The rest of
// the URL must already be in driver format, e.g. user:pass@tcp(host:3306)/db.
func DSN(rawURL string) (string, error) {
	_, rest, found := strings.Cut(rawURL, "://")
	if !found {
		return "", errors.New("MariaDB URL must start with mysql:// or mariadb://")
	}

	cfg, err := mysql.ParseDSN(rest)
	if err != nil {
		return "", fmt.Errorf("invalid MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// NewPool creates a new MariaDB connection pool.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	dsn, err := DSN(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	maxOpen, maxIdle := database.PoolLimits(cfg)
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Migrate creates the cache table if needed.
func (p *Pool) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS embedding_cache (
			content_hash CHAR(64) NOT NULL,
			model VARCHAR(64) NOT NULL,
			embedding LONGBLOB NOT NULL,
			dim INT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (content_hash, model),
			KEY idx_embedding_cache_model (model)
		)
	`)
	if err != nil {
		return fmt.Errorf("create embedding_cache table: %w", err)
	}
	return nil
}

func open(ctx context.Context, cfg *config.DatabaseConfig) (database.EmbeddingCache, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return NewEmbeddingCache(pool), nil
}
