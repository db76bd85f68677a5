package web

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joeypohie/photorank/internal/pipeline"
	"github.com/joeypohie/photorank/internal/web/handlers"
	"github.com/joeypohie/photorank/internal/web/middleware"
	"github.com/joeypohie/photorank/internal/web/static"
)

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.store)
	uploadHandler := handlers.NewUploadHandler(s.store, s.results, s.config.Upload.MaxSize)
	photosHandler := handlers.NewPhotosHandler(s.store, s.results)
	processHandler := handlers.NewProcessHandler(s.store, s.runner, s.results)
	configHandler := handlers.NewConfigHandler(s.runner, s.config.Cluster.Index, s.cacheEnabled)

	s.router.Handle("/metrics", promhttp.HandlerFor(pipeline.Registry, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)
		r.Get("/config", configHandler.Get)
		r.Get("/status", processHandler.Status)

		// Upload
		r.Post("/upload", uploadHandler.Upload)

		// Photos
		r.Get("/photos", photosHandler.List)
		r.Delete("/photos", photosHandler.Clear)
		r.Get("/photos/{id}", photosHandler.Get)
		r.Delete("/photos/{id}", photosHandler.Delete)
		r.Get("/photos/{id}/image", photosHandler.Image)

		// Clustering
		r.Post("/process", processHandler.Process)
		r.Get("/cluster", processHandler.Cluster)
		r.Get("/cluster/assignments", processHandler.Assignments)

		// Process jobs (long-running)
		r.Post("/process/jobs", processHandler.Start)
		r.Get("/process/jobs/active", processHandler.ActiveJob)
		r.Get("/process/jobs/{jobId}", processHandler.GetJob)
		r.Get("/process/jobs/{jobId}/events", processHandler.Events)
		r.Delete("/process/jobs/{jobId}", processHandler.Cancel)
	})

	// Serve static files for frontend (SPA)
	s.router.With(middleware.SecurityHeaders()).Get("/*", s.serveSPA)
}

var staticContentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".ico":  "image/x-icon",
}

// serveSPA serves the single-page application
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	if !static.HasDist() {
		http.NotFound(w, r)
		return
	}

	fs := static.GetFileSystem()
	p := r.URL.Path
	if p == "/" {
		p = "/index.html"
	}

	if f, err := fs.Open(p); err == nil {
		defer f.Close()
		if stat, err := f.Stat(); err == nil && !stat.IsDir() {
			contentType, ok := staticContentTypes[path.Ext(p)]
			if !ok {
				contentType = "application/octet-stream"
			}
			w.Header().Set("Content-Type", contentType)
			if strings.HasPrefix(p, "/assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			w.WriteHeader(http.StatusOK)
			io.Copy(w, f)
			return
		}
	}

	// For SPA routing, serve index.html for non-asset paths
	if strings.HasPrefix(p, "/assets/") {
		http.NotFound(w, r)
		return
	}
	indexFile, err := fs.Open("/index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer indexFile.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, indexFile)
}
