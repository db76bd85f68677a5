package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/joeypohie/photorank/internal/constants"
	"github.com/joeypohie/photorank/internal/imgutil"
)

// HTTPProvider computes image embeddings using the embedding server
type HTTPProvider struct {
	baseURL string
	client  *http.Client

	mu       sync.RWMutex
	modelKey string // last model the server reported, empty until the first embedding
}

// NewHTTPProvider creates a new embedding server client. A zero timeout leaves
// deadlines to the caller's context.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if baseURL == "" {
		baseURL = constants.DefaultEmbeddingURL
	}
	return &HTTPProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// embeddingResponse represents the response from the embedding server
type embeddingResponse struct {
	Dim        int       `json:"dim"`
	Embedding  []float32 `json:"embedding"`
	Model      string    `json:"model"`
	Pretrained string    `json:"pretrained"`
}

// classifyResponse represents the response from the classification endpoint
type classifyResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Name implements Provider.
func (c *HTTPProvider) Name() string {
	return "http"
}

// ModelKey identifies the model behind the server as "http:model/pretrained@dim".
// It is empty until the server has returned at least one embedding.
func (c *HTTPProvider) ModelKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modelKey
}

func (c *HTTPProvider) rememberModel(resp *embeddingResponse) {
	model := resp.Model
	if model == "" {
		model = "unknown"
	}
	if resp.Pretrained != "" {
		model += "/" + resp.Pretrained
	}
	key := fmt.Sprintf("http:%s@%d", model, len(resp.Embedding))

	c.mu.Lock()
	c.modelKey = key
	c.mu.Unlock()
}

// Embed implements Provider.
func (c *HTTPProvider) Embed(ctx context.Context, imageData []byte) ([]float32, error) {
	body, err := c.postImage(ctx, "/embed/image", imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrExtractionFailed, err)
	}

	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrExtractionFailed)
	}
	if embResp.Dim != 0 && embResp.Dim != len(embResp.Embedding) {
		return nil, fmt.Errorf("%w: server reported dim %d, got %d values",
			ErrExtractionFailed, embResp.Dim, len(embResp.Embedding))
	}

	c.rememberModel(&embResp)
	return embResp.Embedding, nil
}

// Confidence returns the classifier's top-class confidence in [0, 1].
func (c *HTTPProvider) Confidence(ctx context.Context, imageData []byte) (float64, error) {
	body, err := c.postImage(ctx, "/classify/image", imageData)
	if err != nil {
		return 0, err
	}

	var clsResp classifyResponse
	if err := json.Unmarshal(body, &clsResp); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if clsResp.Confidence < 0 || clsResp.Confidence > 1 {
		return 0, fmt.Errorf("confidence out of range: %v", clsResp.Confidence)
	}

	return clsResp.Confidence, nil
}

// postImage downsizes the image and posts it as a multipart form.
func (c *HTTPProvider) postImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	resized, err := imgutil.ResizeImage(imageData, constants.MaxImageSize)
	if err != nil {
		return nil, err
	}
	return c.postMultipartImage(ctx, endpoint, resized)
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
func (c *HTTPProvider) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", imgutil.DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
