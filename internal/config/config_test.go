package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Cluster.Eps != 0.3 || cfg.Cluster.MinSamples != 2 || cfg.Cluster.Index != IndexBrute {
		t.Errorf("unexpected cluster defaults: %+v", cfg.Cluster)
	}
	if cfg.Quality.ConfidenceWeight != 0.7 || cfg.Quality.SharpnessWeight != 0.3 {
		t.Errorf("unexpected weights: %+v", cfg.Quality)
	}
	if cfg.Quality.SharpnessNorm != 1000 || cfg.Quality.Scale != 10 {
		t.Errorf("unexpected sharpness defaults: %+v", cfg.Quality)
	}
	if cfg.Embedding.Timeout != 60*time.Second {
		t.Errorf("Embedding.Timeout = %v; want 60s", cfg.Embedding.Timeout)
	}
	if cfg.Upload.MaxSize != 100<<20 {
		t.Errorf("Upload.MaxSize = %d; want 100 MiB", cfg.Upload.MaxSize)
	}
	if cfg.Web.Port != 5001 {
		t.Errorf("Web.Port = %d; want 5001", cfg.Web.Port)
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"CLUSTER_EPS", "CLUSTER_MIN_SAMPLES", "QUALITY_SCORER", "WEB_PORT", "DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Database.URL = %q; want empty", cfg.Database.URL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLUSTER_EPS", "0.15")
	t.Setenv("CLUSTER_MIN_SAMPLES", "3")
	t.Setenv("CLUSTER_INDEX", "hnsw")
	t.Setenv("QUALITY_SCORER", "blended")
	t.Setenv("EMBEDDING_PROVIDER", "phash")
	t.Setenv("EMBEDDING_TIMEOUT", "5s")
	t.Setenv("PROCESS_WORKERS", "8")
	t.Setenv("WEB_PORT", "8080")
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")

	cfg := Load()

	if cfg.Cluster.Eps != 0.15 || cfg.Cluster.MinSamples != 3 || cfg.Cluster.Index != IndexHNSW {
		t.Errorf("cluster overrides not applied: %+v", cfg.Cluster)
	}
	if cfg.Quality.Scorer != ScorerBlended {
		t.Errorf("Quality.Scorer = %q; want blended", cfg.Quality.Scorer)
	}
	if cfg.Embedding.Provider != ProviderPHash || cfg.Embedding.Timeout != 5*time.Second {
		t.Errorf("embedding overrides not applied: %+v", cfg.Embedding)
	}
	if cfg.Processing.Workers != 8 {
		t.Errorf("Processing.Workers = %d; want 8", cfg.Processing.Workers)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Web.Port = %d; want 8080", cfg.Web.Port)
	}
	if len(cfg.Web.AllowedOrigins) != 2 || cfg.Web.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Web.AllowedOrigins)
	}
	if cfg.Database.URL != "postgres://u:p@localhost/db" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		value    string
		expected int
	}{
		{"", 7},
		{"12", 12},
		{"0", 7},
		{"-3", 7},
		{"abc", 7},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("TEST_ENV_INT", tc.value)
			if got := envInt("TEST_ENV_INT", 7); got != tc.expected {
				t.Errorf("envInt(%q) = %d; want %d", tc.value, got, tc.expected)
			}
		})
	}
}

func TestEnvFloat_KeepsOutOfRangeValues(t *testing.T) {
	t.Setenv("TEST_ENV_FLOAT", "-1")
	if got := envFloat("TEST_ENV_FLOAT", 0.3); got != -1 {
		t.Errorf("envFloat = %v; want -1", got)
	}
	t.Setenv("TEST_ENV_FLOAT", "nope")
	if got := envFloat("TEST_ENV_FLOAT", 0.3); got != 0.3 {
		t.Errorf("envFloat = %v; want default", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_ENV_DURATION", "-5s")
	if got := envDuration("TEST_ENV_DURATION", time.Second); got != time.Second {
		t.Errorf("negative duration should fall back, got %v", got)
	}
	t.Setenv("TEST_ENV_DURATION", "250ms")
	if got := envDuration("TEST_ENV_DURATION", time.Second); got != 250*time.Millisecond {
		t.Errorf("envDuration = %v; want 250ms", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero eps", func(c *Config) { c.Cluster.Eps = 0 }, "eps must be positive"},
		{"negative eps", func(c *Config) { c.Cluster.Eps = -0.1 }, "eps must be positive"},
		{"zero min samples", func(c *Config) { c.Cluster.MinSamples = 0 }, "min samples"},
		{"unknown index", func(c *Config) { c.Cluster.Index = "kd" }, "unknown cluster index"},
		{"unknown scorer", func(c *Config) { c.Quality.Scorer = "vibes" }, "unknown quality scorer"},
		{"openai without token", func(c *Config) { c.Quality.Scorer = ScorerOpenAI }, "OPENAI_TOKEN"},
		{"gemini without key", func(c *Config) { c.Quality.Scorer = ScorerGemini }, "GEMINI_API_KEY"},
		{"negative weight", func(c *Config) { c.Quality.SharpnessWeight = -1 }, "weights"},
		{"zero norm", func(c *Config) { c.Quality.SharpnessNorm = 0 }, "sharpness norm"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "clip" }, "unknown embedding provider"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %v; want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Cluster.Eps = 0
	cfg.Cluster.MinSamples = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "eps") || !strings.Contains(err.Error(), "min samples") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}
