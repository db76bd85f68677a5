package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/joeypohie/photorank/internal/imgutil"
	"github.com/joeypohie/photorank/internal/photos"
)

// PhotosHandler handles photo endpoints
type PhotosHandler struct {
	store   *photos.Store
	results *ResultCache
}

// NewPhotosHandler creates a new photos handler
func NewPhotosHandler(store *photos.Store, results *ResultCache) *PhotosHandler {
	return &PhotosHandler{
		store:   store,
		results: results,
	}
}

// PhotoResponse is the public view of an uploaded photo.
type PhotoResponse struct {
	ID       string           `json:"id"`
	Filename string           `json:"filename"`
	URL      string           `json:"url"`
	Size     int64            `json:"size"`
	Metadata *photos.Metadata `json:"metadata,omitempty"`
}

func photoToResponse(p photos.Photo) PhotoResponse {
	return PhotoResponse{
		ID:       p.ID,
		Filename: p.Filename,
		URL:      p.URL,
		Size:     p.Size,
		Metadata: p.Metadata,
	}
}

// List returns all uploaded photos in upload order.
func (h *PhotosHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.store.Snapshot()
	result := make([]PhotoResponse, len(all))
	for i, p := range all {
		result[i] = photoToResponse(p)
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns a single photo
func (h *PhotosHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "Photo not found")
		return
	}
	respondJSON(w, http.StatusOK, photoToResponse(p))
}

// Image serves the original file of a photo.
func (h *PhotosHandler) Image(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.ReadImage(chi.URLParam(r, "id"))
	if errors.Is(err, photos.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Photo not found")
		return
	}
	if err != nil {
		log.Printf("Error reading photo: %s", sanitizeForLog(err.Error()))
		respondError(w, http.StatusInternalServerError, "failed to read photo")
		return
	}

	w.Header().Set("Content-Type", imgutil.DetectMIMEType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Delete removes a photo and drops the cached clustering result.
func (h *PhotosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(chi.URLParam(r, "id"))
	if errors.Is(err, photos.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Photo not found")
		return
	}
	h.results.Invalidate()
	if err != nil {
		log.Printf("Error deleting photo: %s", sanitizeForLog(err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to delete photo")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Photo deleted successfully"})
}

// Clear removes every photo.
func (h *PhotosHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.store.Clear()
	h.results.Invalidate()
	h.results.SetStatus(StateIdle, "Ready to process photos")
	if err != nil {
		log.Printf("Error clearing photos: %s", sanitizeForLog(err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to clear photos")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"deleted": removed})
}
