package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/joeypohie/photorank/internal/constants"
	"github.com/joeypohie/photorank/internal/report"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// ProcessJob represents an async cluster-and-rank run.
type ProcessJob struct {
	EventBroadcaster

	ID              string
	Status          JobStatus
	Stage           string
	TotalPhotos     int
	ProcessedPhotos int
	Error           string
	StartedAt       time.Time
	CompletedAt     *time.Time
	Result          *report.Result
}

// ProcessJobSnapshot is a point-in-time copy of a ProcessJob.
type ProcessJobSnapshot struct {
	ID              string         `json:"id"`
	Status          JobStatus      `json:"status"`
	Stage           string         `json:"stage,omitempty"`
	TotalPhotos     int            `json:"total_photos"`
	ProcessedPhotos int            `json:"processed_photos"`
	Error           string         `json:"error,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Result          *report.Result `json:"result,omitempty"`
}

// GetStatus returns the current job status (implements SSEJob).
func (j *ProcessJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Snapshot returns a copy of the job fields safe to serialize.
func (j *ProcessJob) Snapshot() ProcessJobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return ProcessJobSnapshot{
		ID:              j.ID,
		Status:          j.Status,
		Stage:           j.Stage,
		TotalPhotos:     j.TotalPhotos,
		ProcessedPhotos: j.ProcessedPhotos,
		Error:           j.Error,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		Result:          j.Result,
	}
}

// Cancel cancels the process job. The worker reports the final state.
func (j *ProcessJob) Cancel() {
	j.mu.RLock()
	cancel := j.cancel
	j.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// ProcessJobManager manages process jobs (only one at a time)
type ProcessJobManager struct {
	activeJob *ProcessJob
	mu        sync.RWMutex
}

// NewProcessJobManager creates a new process job manager
func NewProcessJobManager() *ProcessJobManager {
	return &ProcessJobManager{}
}

// GetActiveJob returns the most recent job
func (m *ProcessJobManager) GetActiveJob() *ProcessJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeJob
}

// GetJob returns a job by ID
func (m *ProcessJobManager) GetJob(id string) *ProcessJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.activeJob != nil && m.activeJob.ID == id {
		return m.activeJob
	}
	return nil
}

// TryStart makes job the active job unless another job is still running.
func (m *ProcessJobManager) TryStart(job *ProcessJob) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeJob != nil && !isJobTerminal(m.activeJob.GetStatus()) {
		return false
	}
	m.activeJob = job
	return true
}
