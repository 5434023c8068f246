package ai

import "context"

// Embedder provides fixed-dimension embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatMessage is one role-tagged message in a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatStreamer drives a streaming completion call.
type ChatStreamer interface {
	StreamChat(ctx context.Context, messages []ChatMessage) (*ChatStream, error)
}
