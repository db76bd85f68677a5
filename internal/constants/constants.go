// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Processing constants
const (
	// WorkerPoolSize is the default number of photos analyzed in parallel
	WorkerPoolSize = 4

	// PhotoTimeout bounds embedding plus scoring of a single photo
	PhotoTimeout = 60 * time.Second

	// MaxImageSize is the maximum dimension (width or height) sent to the embedding server
	MaxImageSize = 1024
)

// Embedding server constants
const (
	// DefaultEmbeddingURL is the address of the local embedding server
	DefaultEmbeddingURL = "http://localhost:8000"
)

// Database pool constants
const (
	// DefaultMaxOpenConns is the default connection pool ceiling for the embedding cache
	DefaultMaxOpenConns = 10

	// DefaultMaxIdleConns is the default number of idle cache connections
	DefaultMaxIdleConns = 5
)
