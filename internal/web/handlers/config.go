package handlers

import (
	"net/http"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	runner       Runner
	index        string
	cacheEnabled bool
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(runner Runner, index string, cacheEnabled bool) *ConfigHandler {
	return &ConfigHandler{
		runner:       runner,
		index:        index,
		cacheEnabled: cacheEnabled,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Provider       string  `json:"provider"`
	Scorer         string  `json:"scorer"`
	Eps            float64 `json:"eps"`
	MinSamples     int     `json:"min_samples"`
	Index          string  `json:"index"`
	EmbeddingCache bool    `json:"embedding_cache"`
}

// Get returns the active configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := h.runner.Params()
	respondJSON(w, http.StatusOK, ConfigResponse{
		Provider:       h.runner.ProviderName(),
		Scorer:         h.runner.ScorerName(),
		Eps:            params.Eps,
		MinSamples:     params.MinSamples,
		Index:          h.index,
		EmbeddingCache: h.cacheEnabled,
	})
}
