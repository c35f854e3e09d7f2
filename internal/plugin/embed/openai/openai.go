// Package openai registers the "openai" embedding provider, calling
// OpenAI's /embeddings endpoint one text at a time to match
// capability.Embedder's single-text signature.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	registryembed "github.com/nodenestor/hiveminddb/internal/registry/embed"
)

const defaultBaseURL = "https://api.openai.com/v1"

func init() {
	registryembed.Register(registryembed.Plugin{
		Name:   "openai",
		Loader: load,
	})
}

// load builds an Embedder from cfg.EmbeddingModel, a "provider:model"
// string (spec.md §7); the "openai:" prefix is stripped to get the
// model name passed to the API.
func load(ctx context.Context) (capability.Embedder, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.EmbeddingAPIKey == "" {
		return nil, fmt.Errorf("openai embedder: embedding API key is required")
	}
	model := strings.TrimPrefix(cfg.EmbeddingModel, "openai:")
	if model == "" {
		model = "text-embedding-3-small"
	}
	dim := 0
	if strings.EqualFold(model, "text-embedding-3-small") {
		dim = 1536
	}
	return &Embedder{
		apiKey:     cfg.EmbeddingAPIKey,
		model:      model,
		baseURL:    defaultBaseURL,
		defaultDim: dim,
	}, nil
}

// Embedder calls the OpenAI embeddings API.
type Embedder struct {
	apiKey     string
	model      string
	baseURL    string
	defaultDim int
}

func (e *Embedder) ModelName() string { return e.model }

func (e *Embedder) Dimension() int { return e.defaultDim }

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(embeddingRequest{Input: text, Model: e.model})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai embed: read response: %w", err)
	}

	var result embeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("openai embed: parse response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("openai embed error: %s", result.Error.Message)
	}
	if len(result.Data) != 1 {
		return nil, fmt.Errorf("openai embed: expected 1 embedding, got %d", len(result.Data))
	}
	return result.Data[0].Embedding, nil
}

var _ capability.Embedder = (*Embedder)(nil)
