// Package photos keeps uploaded photos on disk and tracks them in memory.
package photos

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeypohie/photorank/internal/imgutil"
)

// ThumbnailSize is the bounding box of the preview data URLs.
const ThumbnailSize = 400

var (
	// ErrNotFound is returned for an unknown photo id.
	ErrNotFound = errors.New("photo not found")

	// ErrUnsupportedType is returned for files without an allowed extension.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Photo is one uploaded photo.
type Photo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Metadata   *Metadata `json:"metadata,omitempty"`

	// Path is the file on disk.
	Path string `json:"-"`
}

// Store is a concurrency-safe, insertion-ordered set of photos backed by a
// directory.
type Store struct {
	dir string

	mu     sync.RWMutex
	photos []*Photo
	byID   map[string]*Photo
}

// NewStore creates the upload directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{
		dir:  dir,
		byID: make(map[string]*Photo),
	}, nil
}

// Dir returns the upload directory.
func (s *Store) Dir() string {
	return s.dir
}

// Add saves data under a unique name and registers the photo.
func (s *Store) Add(filename string, data []byte) (Photo, error) {
	if !AllowedFile(filename) {
		return Photo{}, fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}

	safe := SanitizeFilename(filename)
	if safe == "" || !AllowedFile(safe) {
		safe = "photo" + strings.ToLower(filepath.Ext(filename))
	}

	path := filepath.Join(s.dir, uuid.New().String()+"_"+safe)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Photo{}, fmt.Errorf("failed to save photo: %w", err)
	}

	// Formats without a Go decoder (HEIC) are kept without a preview.
	url, _ := imgutil.Thumbnail(data, ThumbnailSize)

	p := &Photo{
		ID:         uuid.New().String(),
		Filename:   safe,
		URL:        url,
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
		Metadata:   ExtractMetadata(data),
		Path:       path,
	}

	s.mu.Lock()
	s.photos = append(s.photos, p)
	s.byID[p.ID] = p
	s.mu.Unlock()

	return *p, nil
}

// Get returns the photo with id.
func (s *Store) Get(id string) (Photo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return Photo{}, false
	}
	return *p, true
}

// Count returns the number of photos.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos)
}

// Snapshot returns a copy of all photos in upload order. Later changes to the
// store do not affect the returned slice.
func (s *Store) Snapshot() []Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Photo, len(s.photos))
	for i, p := range s.photos {
		out[i] = *p
	}
	return out
}

// ReadImage returns the file contents of photo id.
func (s *Store) ReadImage(id string) ([]byte, error) {
	p, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return os.ReadFile(p.Path)
}

// Delete removes photo id and its file.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	p, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
		s.photos = slices.DeleteFunc(s.photos, func(q *Photo) bool { return q.ID == id })
	}
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete photo file: %w", err)
	}
	return nil
}

// Clear removes every photo and its file. It returns the number removed.
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	removed := s.photos
	s.photos = nil
	s.byID = make(map[string]*Photo)
	s.mu.Unlock()

	var errs []error
	for _, p := range removed {
		if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return len(removed), errors.Join(errs...)
}

// ScanDir lists image files with an allowed extension directly inside dir,
// sorted by name.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !AllowedFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
