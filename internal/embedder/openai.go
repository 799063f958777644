package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// OpenAIEncoder calls an OpenAI-compatible /v1/embeddings endpoint.
type OpenAIEncoder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	retry   RetryConfig

	dimOnce sync.Once
	dim     int
	dimErr  error
}

// NewOpenAIEncoder creates an encoder for an OpenAI-compatible API. An empty
// baseURL defaults to the hosted OpenAI endpoint.
func NewOpenAIEncoder(baseURL, apiKey, model string) *OpenAIEncoder {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &OpenAIEncoder{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		retry:   DefaultRetryConfig(),
	}
}

func (e *OpenAIEncoder) Model() string { return e.model }

type openaiEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *OpenAIEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(openaiEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	return retryWithBackoff(ctx, e.retry, func() ([][]float32, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("openai embed request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("openai embed returned %d: %s", resp.StatusCode, string(respBody))
		}

		var result openaiEmbedResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode embed response: %w", err)
		}
		if len(result.Data) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Data))
		}

		// The API is allowed to reorder; indexes restore input order.
		vecs := make([][]float32, len(texts))
		for _, d := range result.Data {
			if d.Index < 0 || d.Index >= len(vecs) {
				return nil, fmt.Errorf("embedding index %d out of range", d.Index)
			}
			vecs[d.Index] = d.Embedding
		}
		return vecs, nil
	})
}

func (e *OpenAIEncoder) Dimension(ctx context.Context) (int, error) {
	e.dimOnce.Do(func() {
		vecs, err := e.Embed(ctx, []string{"dimension probe"})
		if err != nil {
			e.dimErr = fmt.Errorf("probe dimension: %w", err)
			return
		}
		e.dim = len(vecs[0])
	})
	return e.dim, e.dimErr
}
