package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/joeypohie/photorank/internal/engine"
	"github.com/joeypohie/photorank/internal/photos"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondProcessError maps a processing failure to a status code. Internal
// details are logged, not returned.
func respondProcessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Error processing photos: %s", sanitizeForLog(err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to process photos")
	}
}

// HealthHandler reports liveness together with the number of uploaded photos.
type HealthHandler struct {
	store *photos.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store *photos.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status     string `json:"status"`
	PhotoCount int    `json:"photoCount"`
}

// Check handles the health check endpoint.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		PhotoCount: h.store.Count(),
	})
}
