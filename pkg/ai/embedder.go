package ai

import (
	"context"
	"fmt"
	"strings"
)

// OpenAIEmbedder wraps the embeddings endpoint with a fixed model and
// dimension. No retry here; retry policy belongs to callers.
type OpenAIEmbedder struct {
	client     *OpenAIClient
	model      string
	dimensions int
}

// NewOpenAIEmbedder builds an embedder for the given model and dimension.
func NewOpenAIEmbedder(client *OpenAIClient, model string, dimensions int) (*OpenAIEmbedder, error) {
	if client == nil {
		return nil, fmt.Errorf("openai client required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("embedding model required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions required")
	}
	return &OpenAIEmbedder{client: client, model: model, dimensions: dimensions}, nil
}

// Embed returns the embedding for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per input text, in input order. Callers
// zip texts with results, so ordering is part of the contract.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embedding texts required")
	}
	reqBody := oaiEmbeddingsRequest{
		Model: e.model,
		Input: texts,
	}
	var resp oaiEmbeddingsResponse
	if err := e.client.doJSON(ctx, "/embeddings", reqBody, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(texts))
	}
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index out of range: %d", item.Index)
		}
		if len(item.Embedding) != e.dimensions {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(item.Embedding), e.dimensions)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding missing for input %d", i)
		}
	}
	return vectors, nil
}

type oaiEmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type oaiEmbeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}
