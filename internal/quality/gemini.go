package quality

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/joeypohie/photorank/internal/imgutil"
)

const geminiModel = "gemini-2.5-flash"

// GeminiScorer asks a Gemini vision model to rate each photo.
type GeminiScorer struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

// NewGeminiScorer creates a Gemini-backed scorer.
func NewGeminiScorer(ctx context.Context, opts LLMOptions) (*GeminiScorer, error) {
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		timeout := opts.Timeout
		cfg.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = geminiModel
	}
	return &GeminiScorer{
		client:  client,
		model:   model,
		limiter: newLimiter(opts.RequestsPerSecond),
	}, nil
}

// Name implements Scorer.
func (p *GeminiScorer) Name() string {
	return "gemini"
}

// Score implements Scorer.
func (p *GeminiScorer) Score(ctx context.Context, imageData []byte) (float64, error) {
	// Resize image to save costs
	resizedData, err := imgutil.ResizeImage(imageData, llmImageMaxSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScoringFailed, err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: qualityPrompt},
				{InlineData: &genai.Blob{Data: resizedData, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range llmMaxRetries {
		if err := p.limiter.Wait(ctx); err != nil {
			return 0, err
		}

		result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
		if err != nil {
			return 0, fmt.Errorf("%w: gemini API error: %w", ErrScoringFailed, err)
		}

		content := result.Text()
		if content == "" {
			return 0, fmt.Errorf("%w: %w", ErrScoringFailed, errors.New("no response from Gemini"))
		}
		lastResponse = content

		score, err := parseQualityReply(content)
		if err != nil {
			lastError = err

			// Add model response and error feedback to contents for retry
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: retryFeedback(err)}},
				},
			)
			continue
		}

		return score, nil
	}

	return 0, fmt.Errorf("%w: no valid score after %d attempts: %w (last response: %s)",
		ErrScoringFailed, llmMaxRetries, lastError, lastResponse)
}
