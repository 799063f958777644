// Package embedder converts chunks and queries into the two vector
// representations the index is built on: a natural-language embedding of the
// textified chunk and a code embedding of the verbatim source.
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

// Encoder is a single embedding model. Implementations must return one
// vector per input text, in input order.
type Encoder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension reports the model's vector width. Callers never assume
	// dimensionality; they ask.
	Dimension(ctx context.Context) (int, error)
	Model() string
}

// OllamaEncoder calls the Ollama /api/embed endpoint.
type OllamaEncoder struct {
	baseURL string
	model   string
	client  *http.Client
	retry   RetryConfig

	dimOnce sync.Once
	dim     int
	dimErr  error
}

// NewOllamaEncoder creates an encoder targeting the given Ollama instance.
func NewOllamaEncoder(baseURL, model string) *OllamaEncoder {
	return &OllamaEncoder{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		retry: DefaultRetryConfig(),
	}
}

// Model returns the configured model name.
func (e *OllamaEncoder) Model() string { return e.model }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed sends a batch of texts to Ollama and returns their embeddings.
// The returned slice has the same length and order as the input.
func (e *OllamaEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	return retryWithBackoff(ctx, e.retry, func() ([][]float32, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("ollama embed request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("ollama embed returned %d: %s", resp.StatusCode, string(respBody))
		}

		var result embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode embed response: %w", err)
		}

		if len(result.Embeddings) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
		}
		return result.Embeddings, nil
	})
}

// Dimension probes the model once with a short input and caches the width.
func (e *OllamaEncoder) Dimension(ctx context.Context) (int, error) {
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
