package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/thebtf/recall/pkg/vectormath"
)

const (
	// DefaultOllamaURL is the default local Ollama endpoint.
	DefaultOllamaURL = "http://localhost:11434"
	// DefaultOllamaModel is the default embedding model.
	DefaultOllamaModel = "nomic-embed-text"
)

// OllamaProvider produces embeddings via a local Ollama instance.
// Vectors are normalized to unit length before being returned so that
// cosine similarity downstream compares directions only.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates an Ollama-backed provider. Empty baseURL and
// model fall back to the local defaults.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed requests an embedding for text. An empty vector from the model is
// reported as (nil, nil): no embedding, not a failure.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(ollamaEmbeddingRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embedding: status %d: %s", resp.StatusCode, data)
	}

	var parsed ollamaEmbeddingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("ollama embedding: decode response: %w", err)
	}

	if len(parsed.Embedding) == 0 {
		return nil, nil
	}
	return vectormath.Normalize(parsed.Embedding), nil
}
