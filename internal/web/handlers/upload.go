package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/joeypohie/photorank/internal/constants"
	"github.com/joeypohie/photorank/internal/photos"
)

// UploadHandler handles photo uploads.
type UploadHandler struct {
	store   *photos.Store
	results *ResultCache
	maxSize int64
}

// NewUploadHandler creates a new upload handler. A non-positive maxSize uses
// constants.MaxUploadSize.
func NewUploadHandler(store *photos.Store, results *ResultCache, maxSize int64) *UploadHandler {
	if maxSize <= 0 {
		maxSize = constants.MaxUploadSize
	}
	return &UploadHandler{
		store:   store,
		results: results,
		maxSize: maxSize,
	}
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Message    string         `json:"message"`
	PhotoCount int            `json:"photoCount"`
	Photos     []photos.Photo `json:"photos"`
}

// saveUploadedFile reads one multipart file into the store.
func (h *UploadHandler) saveUploadedFile(fileHeader *multipart.FileHeader) (photos.Photo, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return photos.Photo{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return photos.Photo{}, fmt.Errorf("failed to read file: %w", err)
	}
	return h.store.Add(fileHeader.Filename, data)
}

// Upload handles multipart uploads in the "photos" field. Files with an
// unsupported extension are skipped.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "No photos provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, ok := r.MultipartForm.File[constants.UploadFormField]
	if !ok {
		respondError(w, http.StatusBadRequest, "No photos provided")
		return
	}
	if len(files) == 0 || (len(files) == 1 && files[0].Filename == "") {
		respondError(w, http.StatusBadRequest, "No files selected")
		return
	}

	uploaded := make([]photos.Photo, 0, len(files))
	for _, fileHeader := range files {
		if fileHeader.Filename == "" || !photos.AllowedFile(fileHeader.Filename) {
			continue
		}
		p, err := h.saveUploadedFile(fileHeader)
		if err != nil {
			log.Printf("Error uploading %s: %s", sanitizeForLog(fileHeader.Filename), sanitizeForLog(err.Error()))
			// Files saved before the failure stay in the store.
			if len(uploaded) > 0 {
				h.results.Invalidate()
			}
			respondError(w, http.StatusInternalServerError, "Failed to upload photos")
			return
		}
		uploaded = append(uploaded, p)
	}

	if len(uploaded) > 0 {
		h.results.Invalidate()
	}

	respondJSON(w, http.StatusOK, UploadResponse{
		Message:    fmt.Sprintf("Successfully uploaded %d photos", len(uploaded)),
		PhotoCount: len(uploaded),
		Photos:     uploaded,
	})
}
