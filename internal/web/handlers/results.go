package handlers

import (
	"sync"

	"github.com/joeypohie/photorank/internal/pipeline"
)

// Processing states reported by GET /status.
const (
	StateIdle       = "idle"
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateError      = "error"
)

// ProcessingStatus is the coarse state of the last processing run.
type ProcessingStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ResultCache holds the outcome of the latest successful run and the current
// processing status. It is shared by the upload, photo and process handlers.
//
// Every change to the photo set bumps the generation. A run records the
// generation before it snapshots the store, and its outcome is only kept if
// the generation is unchanged when it finishes.
type ResultCache struct {
	mu         sync.RWMutex
	outcome    *pipeline.Outcome
	status     ProcessingStatus
	generation uint64
}

// NewResultCache creates an empty cache in the idle state.
func NewResultCache() *ResultCache {
	return &ResultCache{
		status: ProcessingStatus{Status: StateIdle, Message: "Ready to process photos"},
	}
}

// Get returns the cached outcome, or nil.
func (c *ResultCache) Get() *pipeline.Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.outcome
}

// Generation returns the current photo set generation.
func (c *ResultCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Set stores the outcome of a run started at generation gen. It reports false
// and keeps nothing if the photo set changed since.
func (c *ResultCache) Set(o *pipeline.Outcome, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.outcome = o
	return true
}

// Invalidate drops the cached outcome after the photo set changed.
func (c *ResultCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcome = nil
	c.generation++
}

// Status returns the current processing status.
func (c *ResultCache) Status() ProcessingStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// SetStatus updates the processing status.
func (c *ResultCache) SetStatus(status, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = ProcessingStatus{Status: status, Message: message}
}
