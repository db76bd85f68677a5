package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/joeypohie/photorank/internal/photos"
	"github.com/joeypohie/photorank/internal/pipeline"
)

// fakeProvider maps file contents to fixed embeddings.
type fakeProvider struct {
	vectors map[string][]float32
	block   chan struct{}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Embed(ctx context.Context, data []byte) ([]float32, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	v, ok := p.vectors[string(data)]
	if !ok {
		return nil, errors.New("cannot embed")
	}
	return v, nil
}

// fakeScorer maps file contents to fixed scores.
type fakeScorer struct {
	scores map[string]float64
}

func (s *fakeScorer) Name() string { return "fake-scorer" }

func (s *fakeScorer) Score(ctx context.Context, data []byte) (float64, error) {
	v, ok := s.scores[string(data)]
	if !ok {
		return 0, errors.New("cannot score")
	}
	return v, nil
}

// testPipeline returns a pipeline where "a" and "b" are near-duplicates and
// "c" stands alone.
func testPipeline(block chan struct{}) *pipeline.Pipeline {
	provider := &fakeProvider{
		vectors: map[string][]float32{
			"a": {1, 0},
			"b": {1, 0.05},
			"c": {0, 1},
		},
		block: block,
	}
	scorer := &fakeScorer{scores: map[string]float64{"a": 8, "b": 9.5, "c": 3}}
	return pipeline.New(provider, scorer,
		pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// testStore creates a store in a temp dir holding the given files.
func testStore(t *testing.T, files map[string]string) *photos.Store {
	t.Helper()
	store, err := photos.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	for name, content := range files {
		if _, err := store.Add(name, []byte(content)); err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
	}
	return store
}

// multipartRequest builds an upload request with the given files under field.
func multipartRequest(t *testing.T, field string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		fw.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
