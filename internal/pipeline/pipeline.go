// Package pipeline extracts embeddings and quality scores for a batch of
// photos and feeds them to the clustering engine.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/joeypohie/photorank/internal/constants"
	"github.com/joeypohie/photorank/internal/embedding"
	"github.com/joeypohie/photorank/internal/engine"
	"github.com/joeypohie/photorank/internal/quality"
	"github.com/joeypohie/photorank/internal/report"
)

// Processing stages reported through Progress.
const (
	StageAnalyze = "analyze"
	StageCluster = "cluster"
	StageDone    = "done"
)

// Source is a photo to analyze. Read is called once from a worker goroutine.
type Source struct {
	ID       string
	Filename string
	URL      string
	Read     func() ([]byte, error)
}

// Progress describes how far a run has got.
type Progress struct {
	Stage    string `json:"stage"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
	Filename string `json:"filename,omitempty"`
}

// Outcome is the result of a run.
type Outcome struct {
	Result     report.Result
	Assignment *engine.Assignment
	Photos     map[string]report.Photo
	Skipped    []report.Skipped
	Duration   time.Duration
}

// Assignments lists the label of every clustered photo in batch order.
func (o *Outcome) Assignments() []report.Assignment {
	return report.Assignments(o.Assignment, o.Photos)
}

// Pipeline runs embedding and scoring in parallel, then clusters and ranks.
type Pipeline struct {
	provider embedding.Provider
	scorer   quality.Scorer

	params  engine.Params
	index   engine.IndexBuilder
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithParams sets the density parameters.
func WithParams(p engine.Params) Option {
	return func(pl *Pipeline) { pl.params = p }
}

// WithIndex sets the neighbor index used by the clusterer. Nil keeps brute force.
func WithIndex(b engine.IndexBuilder) Option {
	return func(pl *Pipeline) { pl.index = b }
}

// WithWorkers sets the number of photos analyzed at once. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(pl *Pipeline) {
		if n > 0 {
			pl.workers = n
		}
	}
}

// WithTimeout bounds embedding plus scoring of one photo. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(pl *Pipeline) { pl.timeout = d }
}

// WithLogger sets the logger for per-photo failures.
func WithLogger(l *slog.Logger) Option {
	return func(pl *Pipeline) {
		if l != nil {
			pl.logger = l
		}
	}
}

// New creates a pipeline around an embedding provider and a quality scorer.
func New(provider embedding.Provider, scorer quality.Scorer, opts ...Option) *Pipeline {
	pl := &Pipeline{
		provider: provider,
		scorer:   scorer,
		params:   engine.DefaultParams(),
		workers:  constants.WorkerPoolSize,
		timeout:  constants.PhotoTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

// Params returns the density parameters in use.
func (pl *Pipeline) Params() engine.Params {
	return pl.params
}

// ProviderName returns the name of the embedding provider.
func (pl *Pipeline) ProviderName() string {
	return pl.provider.Name()
}

// ScorerName returns the name of the quality scorer.
func (pl *Pipeline) ScorerName() string {
	return pl.scorer.Name()
}

type analyzed struct {
	item    engine.Item
	skipped *report.Skipped
}

// Run analyzes sources and clusters the usable ones. Photos whose embedding
// fails are listed in Outcome.Skipped; photos whose scoring fails keep an
// absent score. progress may be nil and is never called concurrently.
// Cancelling ctx aborts the run with ctx.Err().
func (pl *Pipeline) Run(ctx context.Context, sources []Source, progress func(Progress)) (*Outcome, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(runAttrs(len(sources), pl.workers, pl.params.Eps, pl.params.MinSamples)...))
	defer span.End()

	notify := func(p Progress) {
		if progress != nil {
			progress(p)
		}
	}

	results, err := pl.analyzeAll(ctx, sources, notify)
	if err != nil {
		runsTotal.WithLabelValues("cancelled").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	notify(Progress{Stage: StageCluster, Done: len(sources), Total: len(sources)})

	out, err := pl.cluster(ctx, sources, results)
	if err != nil {
		runsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	out.Duration = time.Since(start)

	runsTotal.WithLabelValues("completed").Inc()
	runDuration.Observe(out.Duration.Seconds())
	clustersFound.Set(float64(len(out.Result.Clusters)))
	span.SetAttributes(
		attribute.Int("photorank.clusters", len(out.Result.Clusters)),
		attribute.Int("photorank.skipped", len(out.Skipped)),
	)

	notify(Progress{Stage: StageDone, Done: len(sources), Total: len(sources)})
	return out, nil
}

func (pl *Pipeline) analyzeAll(ctx context.Context, sources []Source, notify func(Progress)) ([]analyzed, error) {
	results := make([]analyzed, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pl.workers)

	var mu sync.Mutex
	done := 0

	for i, src := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := pl.analyze(gctx, src)
			if err != nil {
				return err
			}
			results[i] = res

			mu.Lock()
			defer mu.Unlock()
			done++
			notify(Progress{Stage: StageAnalyze, Done: done, Total: len(sources), Filename: src.Filename})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// analyze embeds and scores one photo. Only cancellation of the run is
// returned as an error.
func (pl *Pipeline) analyze(ctx context.Context, src Source) (analyzed, error) {
	ctx, span := tracer.Start(ctx, "pipeline.analyze", trace.WithAttributes(
		attribute.String("photorank.photo.id", src.ID),
		attribute.String("photorank.photo.filename", src.Filename),
	))
	defer span.End()

	skip := func(err error) (analyzed, error) {
		if ctx.Err() != nil {
			return analyzed{}, ctx.Err()
		}
		pl.logger.Warn("skipping photo",
			"photo_id", src.ID, "filename", src.Filename, "error", err)
		photosTotal.WithLabelValues(outcomeSkipped).Inc()
		span.RecordError(err)
		return analyzed{skipped: &report.Skipped{ID: src.ID, Filename: src.Filename, Reason: err.Error()}}, nil
	}

	data, err := src.Read()
	if err != nil {
		return skip(fmt.Errorf("failed to read photo: %w", err))
	}

	photoCtx := ctx
	if pl.timeout > 0 {
		var cancel context.CancelFunc
		photoCtx, cancel = context.WithTimeout(ctx, pl.timeout)
		defer cancel()
	}

	embedStart := time.Now()
	vec, err := pl.provider.Embed(photoCtx, data)
	analyzeDuration.WithLabelValues("embed").Observe(time.Since(embedStart).Seconds())
	if err != nil {
		return skip(err)
	}

	scoreStart := time.Now()
	q, err := pl.score(photoCtx, data)
	analyzeDuration.WithLabelValues("score").Observe(time.Since(scoreStart).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return analyzed{}, ctx.Err()
		}
		pl.logger.Warn("scoring failed, keeping photo unscored",
			"photo_id", src.ID, "filename", src.Filename, "error", err)
		photosTotal.WithLabelValues(outcomeUnscored).Inc()
	} else {
		photosTotal.WithLabelValues(outcomeAnalyzed).Inc()
	}

	return analyzed{item: engine.Item{ID: src.ID, Embedding: vec, Quality: q}}, nil
}

func (pl *Pipeline) score(ctx context.Context, data []byte) (engine.Quality, error) {
	v, err := pl.scorer.Score(ctx, data)
	if err != nil {
		return engine.Unscored(), err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return engine.Unscored(), fmt.Errorf("%w: invalid score %v", quality.ErrScoringFailed, v)
	}
	return engine.Score(v), nil
}

func (pl *Pipeline) cluster(ctx context.Context, sources []Source, results []analyzed) (*Outcome, error) {
	items := make([]engine.Item, 0, len(results))
	photos := make(map[string]report.Photo, len(results))
	var skipped []report.Skipped

	for i, res := range results {
		if res.skipped != nil {
			skipped = append(skipped, *res.skipped)
			continue
		}
		items = append(items, res.item)
		photos[res.item.ID] = report.Photo{
			ID:       sources[i].ID,
			Filename: sources[i].Filename,
			URL:      sources[i].URL,
			Score:    report.ScoreOf(res.item.Quality),
		}
	}

	var opts []engine.Option
	if pl.index != nil {
		opts = append(opts, engine.WithNeighborIndex(pl.index))
	}

	_, span := tracer.Start(ctx, "engine.Cluster", trace.WithAttributes(attribute.Int("photorank.items", len(items))))
	assignment, err := engine.Cluster(items, pl.params.Eps, pl.params.MinSamples, opts...)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}

	_, span = tracer.Start(ctx, "engine.Rank")
	clusters, unclustered, err := engine.Rank(assignment.Groups(), engine.QualityOf(items))
	span.End()
	if err != nil {
		return nil, fmt.Errorf("ranking failed: %w", err)
	}

	res := engine.Assemble(clusters, unclustered, func(m engine.Member) report.Photo {
		return photos[m.ID]
	})

	return &Outcome{
		Result:     report.FromEngine(res, skipped),
		Assignment: assignment,
		Photos:     photos,
		Skipped:    skipped,
	}, nil
}
