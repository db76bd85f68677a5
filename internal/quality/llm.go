package quality

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"
)

//go:embed prompts/quality.txt
var qualityPrompt string

const (
	// llmMaxRetries bounds the attempts to get a parseable reply.
	llmMaxRetries = 3

	// llmImageMaxSize is the longest side of images sent to vision models.
	llmImageMaxSize = 800

	// llmMaxScore is the top of the scale the prompt asks for.
	llmMaxScore = 10.0
)

// qualityReply is the JSON object the vision models are asked for.
type qualityReply struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

// parseQualityReply decodes a model reply and checks the score range.
func parseQualityReply(content string) (float64, error) {
	var reply qualityReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return 0, err
	}
	if reply.Score == nil {
		return 0, errors.New(`missing "score" field`)
	}
	s := *reply.Score
	if math.IsNaN(s) || s < 0 || s > llmMaxScore {
		return 0, fmt.Errorf("score %v outside [0, %v]", s, llmMaxScore)
	}
	return s, nil
}

// retryFeedback is sent back to the model after an unusable reply.
func retryFeedback(err error) string {
	return fmt.Sprintf("Invalid reply: %v. Respond with a JSON object like {\"score\": 7.5, \"reason\": \"...\"} and nothing else.", err)
}

// newLimiter returns a limiter allowing rps requests per second. A
// non-positive rps disables limiting.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), max(1, int(math.Ceil(rps))))
}

// LLMOptions configure the vision model scorers.
type LLMOptions struct {
	APIKey string
	// Model overrides the default model name.
	Model string
	// RequestsPerSecond limits API calls; zero means unlimited.
	RequestsPerSecond float64
	// BaseURL overrides the API endpoint, mostly for tests.
	BaseURL string
	// Timeout bounds a single API call; zero leaves it to the context.
	Timeout time.Duration
}
