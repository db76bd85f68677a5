package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Neighbor index names
const (
	IndexBrute = "brute"
	IndexHNSW  = "hnsw"
)

// Quality scorer names
const (
	ScorerSharpness = "sharpness"
	ScorerBlended   = "blended"
	ScorerOpenAI    = "openai"
	ScorerGemini    = "gemini"
)

// Embedding provider names
const (
	ProviderHTTP  = "http"
	ProviderPHash = "phash"
)

type Config struct {
	Cluster    ClusterConfig    `yaml:"cluster"`
	Quality    QualityConfig    `yaml:"quality"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Processing ProcessingConfig `yaml:"processing"`
	Database   DatabaseConfig   `yaml:"database"`
	Upload     UploadConfig     `yaml:"upload"`
	Web        WebConfig        `yaml:"web"`
	OpenAI     OpenAIConfig     `yaml:"-"`
	Gemini     GeminiConfig     `yaml:"-"`
}

type ClusterConfig struct {
	Eps        float64 `yaml:"eps"`
	MinSamples int     `yaml:"min_samples"`
	Index      string  `yaml:"index"` // brute or hnsw
}

type QualityConfig struct {
	Scorer            string  `yaml:"scorer"`
	ConfidenceWeight  float64 `yaml:"confidence_weight"`
	SharpnessWeight   float64 `yaml:"sharpness_weight"`
	SharpnessNorm     float64 `yaml:"sharpness_norm"` // Laplacian variance that counts as fully sharp
	Scale             float64 `yaml:"scale"`
	Model             string  `yaml:"model"` // LLM model override, empty keeps the scorer default
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type EmbeddingConfig struct {
	Provider string        `yaml:"provider"`
	URL      string        `yaml:"url"` // defaults to http://localhost:8000
	Timeout  time.Duration `yaml:"timeout"`
}

type ProcessingConfig struct {
	Workers      int           `yaml:"workers"`
	PhotoTimeout time.Duration `yaml:"photo_timeout"`
}

type DatabaseConfig struct {
	URL          string `yaml:"-"`              // postgres:// or mysql:// URL, empty disables the embedding cache
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections
}

type UploadConfig struct {
	Dir     string `yaml:"dir"`
	MaxSize int64  `yaml:"max_size"` // Maximum request body in bytes
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"-"`
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float. Range checks are left
// to Validate so that a bad value is reported instead of silently ignored.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration string.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults returns the built-in configuration without environment overrides.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

func Load() *Config {
	d := Defaults()

	return &Config{
		Cluster: ClusterConfig{
			Eps:        envFloat("CLUSTER_EPS", d.Cluster.Eps),
			MinSamples: envInt("CLUSTER_MIN_SAMPLES", d.Cluster.MinSamples),
			Index:      envString("CLUSTER_INDEX", d.Cluster.Index),
		},
		Quality: QualityConfig{
			Scorer:            envString("QUALITY_SCORER", d.Quality.Scorer),
			ConfidenceWeight:  envFloat("QUALITY_CONFIDENCE_WEIGHT", d.Quality.ConfidenceWeight),
			SharpnessWeight:   envFloat("QUALITY_SHARPNESS_WEIGHT", d.Quality.SharpnessWeight),
			SharpnessNorm:     envFloat("QUALITY_SHARPNESS_NORM", d.Quality.SharpnessNorm),
			Scale:             envFloat("QUALITY_SCALE", d.Quality.Scale),
			Model:             envString("QUALITY_MODEL", d.Quality.Model),
			RequestsPerSecond: envFloat("QUALITY_REQUESTS_PER_SECOND", d.Quality.RequestsPerSecond),
		},
		Embedding: EmbeddingConfig{
			Provider: envString("EMBEDDING_PROVIDER", d.Embedding.Provider),
			URL:      envString("EMBEDDING_URL", d.Embedding.URL),
			Timeout:  envDuration("EMBEDDING_TIMEOUT", d.Embedding.Timeout),
		},
		Processing: ProcessingConfig{
			Workers:      envInt("PROCESS_WORKERS", d.Processing.Workers),
			PhotoTimeout: envDuration("PHOTO_TIMEOUT", d.Processing.PhotoTimeout),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Upload: UploadConfig{
			Dir:     envString("UPLOAD_FOLDER", d.Upload.Dir),
			MaxSize: int64(envInt("MAX_CONTENT_LENGTH", int(d.Upload.MaxSize))),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if math.IsNaN(c.Cluster.Eps) || c.Cluster.Eps <= 0 {
		errs = append(errs, fmt.Errorf("cluster eps must be positive, got %v", c.Cluster.Eps))
	}
	if c.Cluster.MinSamples < 1 {
		errs = append(errs, fmt.Errorf("cluster min samples must be at least 1, got %d", c.Cluster.MinSamples))
	}
	switch c.Cluster.Index {
	case IndexBrute, IndexHNSW:
	default:
		errs = append(errs, fmt.Errorf("unknown cluster index %q", c.Cluster.Index))
	}

	switch c.Quality.Scorer {
	case ScorerSharpness, ScorerBlended:
	case ScorerOpenAI:
		if c.OpenAI.Token == "" {
			errs = append(errs, errors.New("OPENAI_TOKEN is required for the openai scorer"))
		}
	case ScorerGemini:
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini scorer"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown quality scorer %q", c.Quality.Scorer))
	}
	if c.Quality.ConfidenceWeight < 0 || c.Quality.SharpnessWeight < 0 {
		errs = append(errs, errors.New("quality weights must not be negative"))
	}
	if c.Quality.SharpnessNorm <= 0 {
		errs = append(errs, fmt.Errorf("sharpness norm must be positive, got %v", c.Quality.SharpnessNorm))
	}
	if c.Quality.Scale < 0 {
		errs = append(errs, fmt.Errorf("quality scale must not be negative, got %v", c.Quality.Scale))
	}

	switch c.Embedding.Provider {
	case ProviderHTTP, ProviderPHash:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}

	return errors.Join(errs...)
}
