package quality

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"golang.org/x/time/rate"

	"github.com/joeypohie/photorank/internal/imgutil"
)

const chatModel = openai.ChatModelGPT4_1Mini

// Usage tracks token usage across calls.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// OpenAIScorer asks an OpenAI vision model to rate each photo.
type OpenAIScorer struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter

	mu    sync.Mutex
	usage Usage
}

// NewOpenAIScorer creates an OpenAI-backed scorer.
func NewOpenAIScorer(opts LLMOptions) *OpenAIScorer {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	client := openai.NewClient(reqOpts...)

	model := opts.Model
	if model == "" {
		model = chatModel
	}
	return &OpenAIScorer{
		client:  &client,
		model:   model,
		limiter: newLimiter(opts.RequestsPerSecond),
	}
}

// Name implements Scorer.
func (p *OpenAIScorer) Name() string {
	return "openai"
}

// Usage returns the tokens consumed so far.
func (p *OpenAIScorer) Usage() Usage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage
}

func (p *OpenAIScorer) trackUsage(inputTokens, outputTokens int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage.InputTokens += int(inputTokens)
	p.usage.OutputTokens += int(outputTokens)
}

// Score implements Scorer.
func (p *OpenAIScorer) Score(ctx context.Context, imageData []byte) (float64, error) {
	// Resize image to save costs
	resizedData, err := imgutil.ResizeImage(imageData, llmImageMaxSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScoringFailed, err)
	}

	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resizedData)

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(qualityPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart("Rate this photo."),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "low",
						}),
					},
				},
			},
		},
	}

	var lastError error
	var lastResponse string

	for range llmMaxRetries {
		if err := p.limiter.Wait(ctx); err != nil {
			return 0, err
		}

		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    p.model,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(100),
		})
		if err != nil {
			return 0, fmt.Errorf("%w: OpenAI API error: %w", ErrScoringFailed, err)
		}

		if len(resp.Choices) == 0 {
			return 0, fmt.Errorf("%w: %w", ErrScoringFailed, errors.New("no response from OpenAI"))
		}

		if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
			p.trackUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}

		content := resp.Choices[0].Message.Content
		lastResponse = content

		score, err := parseQualityReply(content)
		if err != nil {
			lastError = err

			// Add assistant response and error feedback to messages for retry
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(retryFeedback(err)),
						},
					},
				},
			)
			continue
		}

		return score, nil
	}

	return 0, fmt.Errorf("%w: no valid score after %d attempts: %w (last response: %s)",
		ErrScoringFailed, llmMaxRetries, lastError, lastResponse)
}
