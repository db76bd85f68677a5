package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/joeypohie/photorank/internal/config"
	"github.com/joeypohie/photorank/internal/constants"
)

// Opener connects to a cache backend.
type Opener func(ctx context.Context, cfg *config.DatabaseConfig) (EmbeddingCache, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]Opener{}
)

// ErrNotConfigured is returned by Open when no database URL is set.
var ErrNotConfigured = errors.New("embedding cache not configured: DATABASE_URL is empty")

// RegisterBackend registers a cache backend for a URL scheme.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(scheme string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[scheme] = open
}

// Schemes returns the registered URL schemes, sorted.
func Schemes() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	out := make([]string, 0, len(backends))
	for s := range backends {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Open connects to the backend selected by the scheme of cfg.URL. The URL is
// not parsed further because MySQL DSNs are not valid URLs.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (EmbeddingCache, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, ErrNotConfigured
	}

	scheme, _, found := strings.Cut(cfg.URL, "://")
	if !found {
		return nil, errors.New("invalid database URL: missing scheme")
	}

	backendsMu.RLock()
	open, ok := backends[scheme]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported database scheme %q (registered: %v)", scheme, Schemes())
	}
	return open(ctx, cfg)
}

// PoolLimits returns the connection pool limits, using the defaults for unset values.
func PoolLimits(cfg *config.DatabaseConfig) (maxOpen, maxIdle int) {
	maxOpen, maxIdle = cfg.MaxOpenConns, cfg.MaxIdleConns
	if maxOpen <= 0 {
		maxOpen = constants.DefaultMaxOpenConns
	}
	if maxIdle <= 0 {
		maxIdle = constants.DefaultMaxIdleConns
	}
	return maxOpen, min(maxIdle, maxOpen)
}
