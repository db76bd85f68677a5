package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joeypohie/photorank/internal/engine"
	"github.com/joeypohie/photorank/internal/photos"
	"github.com/joeypohie/photorank/internal/pipeline"
)

// Runner clusters and ranks a batch of photos.
type Runner interface {
	Run(ctx context.Context, sources []pipeline.Source, progress func(pipeline.Progress)) (*pipeline.Outcome, error)
	Params() engine.Params
	ProviderName() string
	ScorerName() string
}

// ProcessHandler handles clustering endpoints
type ProcessHandler struct {
	store      *photos.Store
	runner     Runner
	results    *ResultCache
	jobManager *ProcessJobManager
}

// NewProcessHandler creates a new process handler
func NewProcessHandler(store *photos.Store, runner Runner, results *ResultCache) *ProcessHandler {
	return &ProcessHandler{
		store:      store,
		runner:     runner,
		results:    results,
		jobManager: NewProcessJobManager(),
	}
}

// sourcesFromStore turns the current photo set into pipeline sources. Files
// are read lazily by the workers.
func sourcesFromStore(store *photos.Store) []pipeline.Source {
	snapshot := store.Snapshot()
	sources := make([]pipeline.Source, len(snapshot))
	for i, p := range snapshot {
		sources[i] = pipeline.Source{
			ID:       p.ID,
			Filename: p.Filename,
			URL:      p.URL,
			Read:     func() ([]byte, error) { return os.ReadFile(p.Path) },
		}
	}
	return sources
}

func completedMessage(o *pipeline.Outcome) string {
	return fmt.Sprintf("Processed photos into %d clusters", len(o.Result.Clusters))
}

// storeOutcome caches the outcome of a run started at gen and updates the
// status. An outcome computed from a stale photo set is not cached.
func (h *ProcessHandler) storeOutcome(outcome *pipeline.Outcome, gen uint64) {
	if !h.results.Set(outcome, gen) {
		h.results.SetStatus(StateIdle, "Photos changed during processing, results discarded")
		return
	}
	h.results.SetStatus(StateCompleted, completedMessage(outcome))
}

// Process clusters and ranks all uploaded photos and waits for the result.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	gen := h.results.Generation()
	sources := sourcesFromStore(h.store)
	if len(sources) == 0 {
		respondError(w, http.StatusBadRequest, "No photos uploaded")
		return
	}

	h.results.SetStatus(StateProcessing, fmt.Sprintf("Processing %d photos", len(sources)))
	outcome, err := h.runner.Run(r.Context(), sources, nil)
	if err != nil {
		h.results.SetStatus(StateError, "Failed to process photos")
		respondProcessError(w, err)
		return
	}

	h.storeOutcome(outcome, gen)
	respondJSON(w, http.StatusOK, outcome.Result)
}

// Cluster returns the cached result of the last run.
func (h *ProcessHandler) Cluster(w http.ResponseWriter, r *http.Request) {
	outcome := h.results.Get()
	if outcome == nil {
		respondError(w, http.StatusNotFound, "No clustering results available")
		return
	}
	respondJSON(w, http.StatusOK, outcome.Result)
}

// Assignments returns the per-photo cluster labels of the last run.
func (h *ProcessHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	outcome := h.results.Get()
	if outcome == nil {
		respondError(w, http.StatusNotFound, "No clustering results available")
		return
	}
	respondJSON(w, http.StatusOK, outcome.Assignments())
}

// Status returns the coarse processing status.
func (h *ProcessHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.results.Status())
}

// Start starts a new processing job
func (h *ProcessHandler) Start(w http.ResponseWriter, r *http.Request) {
	gen := h.results.Generation()
	sources := sourcesFromStore(h.store)
	if len(sources) == 0 {
		respondError(w, http.StatusBadRequest, "No photos uploaded")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &ProcessJob{
		ID:          uuid.New().String(),
		Status:      JobStatusPending,
		TotalPhotos: len(sources),
		StartedAt:   time.Now(),
	}
	job.cancel = cancel

	if !h.jobManager.TryStart(job) {
		cancel()
		respondError(w, http.StatusConflict, "a process job is already running")
		return
	}

	go h.runProcessJob(ctx, job, sources, gen)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(JobStatusPending),
	})
}

// ActiveJob returns the most recent process job
func (h *ProcessHandler) ActiveJob(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.GetActiveJob()
	if job == nil {
		respondError(w, http.StatusNotFound, "no process job")
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// GetJob returns the status of a process job
func (h *ProcessHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events streams process job events via SSE
func (h *ProcessHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			if job := h.jobManager.GetJob(id); job != nil {
				return job
			}
			return nil
		},
		func(job SSEJob) any {
			return job.(*ProcessJob).Snapshot()
		},
	)
}

// Cancel cancels a process job
func (h *ProcessHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runProcessJob executes the process job in the background
func (h *ProcessHandler) runProcessJob(ctx context.Context, job *ProcessJob, sources []pipeline.Source, gen uint64) {
	defer job.cancel()

	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Process job started"})
	h.results.SetStatus(StateProcessing, fmt.Sprintf("Processing %d photos", len(sources)))

	outcome, err := h.runner.Run(ctx, sources, func(p pipeline.Progress) {
		h.sendProgress(job, p)
	})
	if err != nil {
		if ctx.Err() != nil {
			h.cancelJob(job)
			return
		}
		h.failJob(job, err)
		return
	}

	h.completeJob(job, outcome, gen)
}

func (h *ProcessHandler) sendProgress(job *ProcessJob, p pipeline.Progress) {
	job.mu.Lock()
	job.Stage = p.Stage
	job.ProcessedPhotos = p.Done
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "progress", Data: p})
}

func (h *ProcessHandler) failJob(job *ProcessJob, err error) {
	log.Printf("Process job %s failed: %s", job.ID, sanitizeForLog(err.Error()))
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = err.Error()
	job.CompletedAt = &now
	job.mu.Unlock()
	h.results.SetStatus(StateError, "Failed to process photos")
	job.SendEvent(JobEvent{Type: "job_error", Message: err.Error()})
}

func (h *ProcessHandler) cancelJob(job *ProcessJob) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCancelled
	job.CompletedAt = &now
	job.mu.Unlock()
	h.results.SetStatus(StateIdle, "Processing cancelled")
	job.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

func (h *ProcessHandler) completeJob(job *ProcessJob, outcome *pipeline.Outcome, gen uint64) {
	h.storeOutcome(outcome, gen)

	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.Result = &outcome.Result
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "completed", Data: outcome.Result})
}
