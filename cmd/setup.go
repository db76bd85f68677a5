package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joeypohie/photorank/internal/config"
	"github.com/joeypohie/photorank/internal/database"
	"github.com/joeypohie/photorank/internal/embedding"
	"github.com/joeypohie/photorank/internal/engine"
	"github.com/joeypohie/photorank/internal/pipeline"
	"github.com/joeypohie/photorank/internal/quality"

	// Cache backends register themselves by URL scheme.
	_ "github.com/joeypohie/photorank/internal/database/mariadb"
	_ "github.com/joeypohie/photorank/internal/database/postgres"
)

// components is everything a processing run needs, built from the config.
type components struct {
	provider embedding.Provider
	scorer   quality.Scorer
	cache    database.EmbeddingCache
	pipeline *pipeline.Pipeline
}

// Close releases the embedding cache connection, if any.
func (c *components) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func qualityWeights(cfg *config.Config) quality.Weights {
	return quality.Weights{
		Confidence:    cfg.Quality.ConfidenceWeight,
		Sharpness:     cfg.Quality.SharpnessWeight,
		SharpnessNorm: cfg.Quality.SharpnessNorm,
		Scale:         cfg.Quality.Scale,
	}
}

func engineParams(cfg *config.Config) engine.Params {
	return engine.Params{Eps: cfg.Cluster.Eps, MinSamples: cfg.Cluster.MinSamples}
}

func indexBuilder(cfg *config.Config) engine.IndexBuilder {
	if cfg.Cluster.Index == config.IndexHNSW {
		return engine.HNSWIndex()
	}
	return engine.BruteForce()
}

// newProvider creates the embedding provider named in the config.
func newProvider(cfg *config.Config) (embedding.Provider, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderHTTP:
		return embedding.NewHTTPProvider(cfg.Embedding.URL, cfg.Embedding.Timeout), nil
	case config.ProviderPHash:
		return embedding.NewPerceptualProvider(), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// newScorer creates the quality scorer named in the config. The blended
// scorer asks the embedding server for classifier confidence.
func newScorer(ctx context.Context, cfg *config.Config) (quality.Scorer, error) {
	weights := qualityWeights(cfg)
	llm := quality.LLMOptions{
		Model:             cfg.Quality.Model,
		RequestsPerSecond: cfg.Quality.RequestsPerSecond,
	}

	switch cfg.Quality.Scorer {
	case config.ScorerSharpness:
		return quality.NewSharpnessScorer(weights), nil
	case config.ScorerBlended:
		return quality.NewBlendedScorer(embedding.NewHTTPProvider(cfg.Embedding.URL, cfg.Embedding.Timeout), weights), nil
	case config.ScorerOpenAI:
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		llm.APIKey = cfg.OpenAI.Token
		return quality.NewOpenAIScorer(llm), nil
	case config.ScorerGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		llm.APIKey = cfg.Gemini.APIKey
		scorer, err := quality.NewGeminiScorer(ctx, llm)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini scorer: %w", err)
		}
		return scorer, nil
	default:
		return nil, fmt.Errorf("unknown quality scorer %q", cfg.Quality.Scorer)
	}
}

// buildComponents validates cfg and wires provider, scorer, optional cache
// and pipeline together.
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger()

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	c := &components{}
	if cfg.Database.URL != "" {
		cache, err := database.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open embedding cache: %w", err)
		}
		c.cache = cache
		provider = embedding.NewCachedProvider(provider, cache, logger)
	}
	c.provider = provider

	scorer, err := newScorer(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.scorer = scorer

	c.pipeline = pipeline.New(provider, scorer,
		pipeline.WithParams(engineParams(cfg)),
		pipeline.WithIndex(indexBuilder(cfg)),
		pipeline.WithWorkers(cfg.Processing.Workers),
		pipeline.WithTimeout(cfg.Processing.PhotoTimeout),
		pipeline.WithLogger(logger),
	)
	return c, nil
}
