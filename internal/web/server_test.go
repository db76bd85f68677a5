package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joeypohie/photorank/internal/config"
	"github.com/joeypohie/photorank/internal/photos"
	"github.com/joeypohie/photorank/internal/pipeline"
)

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Embed(ctx context.Context, data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, errors.New("empty")
	}
	return []float32{1, float32(data[0])}, nil
}

type stubScorer struct{}

func (stubScorer) Name() string { return "stub" }

func (stubScorer) Score(ctx context.Context, data []byte) (float64, error) {
	return float64(len(data)), nil
}

func testServer(t *testing.T) *Server {
	t.Helper()
	store, err := photos.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	cfg := config.Defaults()
	cfg.Web.Host = "127.0.0.1"
	cfg.Web.Port = 0
	return NewServer(cfg, store, pipeline.New(stubProvider{}, stubScorer{}), false)
}

func serve(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(method, path, nil))
	return recorder
}

func TestServer_Routes(t *testing.T) {
	s := testServer(t)

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/config", http.StatusOK},
		{http.MethodGet, "/api/v1/status", http.StatusOK},
		{http.MethodGet, "/api/v1/photos", http.StatusOK},
		{http.MethodGet, "/api/v1/photos/missing", http.StatusNotFound},
		{http.MethodGet, "/api/v1/cluster", http.StatusNotFound},
		{http.MethodPost, "/api/v1/process", http.StatusBadRequest},
		{http.MethodPost, "/api/v1/process/jobs", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/process/jobs/active", http.StatusNotFound},
		{http.MethodGet, "/api/v1/process/jobs/unknown", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			recorder := serve(t, s, tc.method, tc.path)
			if recorder.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d\nBody: %s", tc.wantStatus, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	s := testServer(t)
	recorder := serve(t, s, http.MethodGet, "/metrics")

	body, _ := io.ReadAll(recorder.Body)
	if !strings.Contains(string(body), "photorank_last_run_clusters") {
		t.Errorf("expected photorank metrics in output")
	}
}

func TestServer_SPA(t *testing.T) {
	s := testServer(t)

	for _, path := range []string{"/", "/index.html", "/some/client/route"} {
		t.Run(path, func(t *testing.T) {
			recorder := serve(t, s, http.MethodGet, path)
			if recorder.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", recorder.Code)
			}
			if ct := recorder.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
				t.Errorf("unexpected Content-Type '%s'", ct)
			}
			if !strings.Contains(recorder.Body.String(), "<title>photorank</title>") {
				t.Error("expected embedded index page")
			}
			if recorder.Header().Get("X-Frame-Options") != "DENY" {
				t.Error("expected security headers on frontend")
			}
		})
	}
}

func TestServer_MissingAsset(t *testing.T) {
	s := testServer(t)
	recorder := serve(t, s, http.MethodGet, "/assets/missing.js")
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", recorder.Code)
	}
}

func TestServer_Addr(t *testing.T) {
	s := testServer(t)
	if s.httpServer.Addr != "127.0.0.1:0" {
		t.Errorf("unexpected addr '%s'", s.httpServer.Addr)
	}
}
