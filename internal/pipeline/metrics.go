package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Registry holds the pipeline metrics. The web server exposes it on /metrics.
var Registry = prometheus.NewRegistry()

// Prometheus metrics
var (
	photosTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photorank_photos_total",
			Help: "Total number of analyzed photos by outcome",
		},
		[]string{"outcome"},
	)
	analyzeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photorank_analyze_duration_seconds",
			Help:    "Duration of embedding and scoring a single photo",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"stage"},
	)
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photorank_runs_total",
			Help: "Total number of processing runs by result",
		},
		[]string{"result"},
	)
	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photorank_run_duration_seconds",
			Help:    "Duration of completed processing runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~800s
		},
	)
	clustersFound = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "photorank_last_run_clusters",
			Help: "Number of clusters found by the last completed run",
		},
	)
)

// Photo outcomes
const (
	outcomeAnalyzed = "analyzed"
	outcomeUnscored = "unscored"
	outcomeSkipped  = "skipped"
)

var tracer = otel.Tracer("github.com/joeypohie/photorank/pipeline")

func init() {
	Registry.MustRegister(photosTotal, analyzeDuration, runsTotal, runDuration, clustersFound)
	Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

func runAttrs(photos, workers int, eps float64, minSamples int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("photorank.photos", photos),
		attribute.Int("photorank.workers", workers),
		attribute.Float64("photorank.eps", eps),
		attribute.Int("photorank.min_samples", minSamples),
	}
}
