package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bookassist/pkg/ai"
	"bookassist/pkg/domain"
)

const systemPrompt = `You are an expert AI assistant for a technical textbook. Answer questions based on provided context.

Guidelines:
- Provide accurate, detailed answers based on the context provided
- If the context doesn't contain enough information, acknowledge this clearly
- Use clear explanations suitable for students
- Reference specific parts of the context when relevant
- Be concise but thorough`

// ChatRequest is one question bound to a conversation session.
type ChatRequest struct {
	Message      string `json:"message"`
	SessionID    string `json:"session_id"`
	SelectedText string `json:"selected_text,omitempty"`
}

// Chat retrieves context for the question, streams the model answer
// through emit in arrival order, and persists the completed exchange.
//
// If the model call fails mid-stream, the fragments already delivered
// stand: an inline error marker is appended and the partial answer is
// persisted. If ctx is canceled (client gone), nothing is persisted.
func (a *App) Chat(ctx context.Context, req ChatRequest, emit func(fragment string) error) error {
	if strings.TrimSpace(req.Message) == "" {
		return ErrMessageRequired
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return ErrSessionRequired
	}

	retrieved, err := a.Retrieve(ctx, req.Message)
	if err != nil {
		return domain.WrapError(domain.KindRetrieval, "retrieval failed", err)
	}

	contextUsed := joinChunkTexts(retrieved)
	messages, err := a.buildMessages(req, retrieved)
	if err != nil {
		return err
	}

	stream, err := a.streamer.StreamChat(ctx, messages)
	if err != nil {
		return domain.WrapError(domain.KindUpstream, "completion failed", err)
	}

	var answer strings.Builder
	for fragment := range stream.Fragments() {
		answer.WriteString(fragment)
		if err := emit(fragment); err != nil {
			// Consumer is gone. The upstream call is torn down via ctx;
			// an abandoned exchange is never recorded.
			return fmt.Errorf("deliver fragment: %w", err)
		}
	}

	if streamErr := stream.Err(); streamErr != nil {
		if ctx.Err() != nil || errors.Is(streamErr, context.Canceled) {
			return streamErr
		}
		marker := fmt.Sprintf("\n\n[Error: %v]", streamErr)
		answer.WriteString(marker)
		if err := emit(marker); err != nil {
			return fmt.Errorf("deliver fragment: %w", err)
		}
		a.logger.Error("completion stream failed", "session_id", req.SessionID, "error", streamErr)
	}

	turn := domain.ConversationTurn{
		ID:               uuid.NewString(),
		SessionID:        req.SessionID,
		UserMessage:      req.Message,
		AssistantMessage: answer.String(),
		ContextUsed:      contextUsed,
		SelectedText:     req.SelectedText,
		Sources:          chunkSources(retrieved),
		CreatedAt:        a.now().UTC(),
	}
	if err := a.store.AppendConversationTurn(turn); err != nil {
		return fmt.Errorf("save conversation turn: %w", err)
	}
	return nil
}

// Retrieve embeds the query and searches the vector index, reshaping
// each hit into a request-scoped chunk projection.
func (a *App) Retrieve(ctx context.Context, query string) ([]domain.RetrievedChunk, error) {
	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := a.index.Search(ctx, a.collection, vector, a.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	chunks := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		metadata := make(map[string]string, len(hit.Payload))
		for k, v := range hit.Payload {
			if k != "text" {
				metadata[k] = v
			}
		}
		chunks = append(chunks, domain.RetrievedChunk{
			Text:     hit.Payload["text"],
			Score:    hit.Score,
			Metadata: metadata,
		})
	}
	return chunks, nil
}

func (a *App) buildMessages(req ChatRequest, retrieved []domain.RetrievedChunk) ([]ai.ChatMessage, error) {
	messages := []ai.ChatMessage{{Role: "system", Content: systemPrompt}}

	turns, err := a.store.ListConversationTurns(req.SessionID, a.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, turn := range turns {
		messages = append(messages,
			ai.ChatMessage{Role: "user", Content: turn.UserMessage},
			ai.ChatMessage{Role: "assistant", Content: turn.AssistantMessage},
		)
	}

	contextText := AssembleContext(retrieved, req.SelectedText)
	messages = append(messages, ai.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, req.Message),
	})
	return messages, nil
}

func joinChunkTexts(chunks []domain.RetrievedChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}

func chunkSources(chunks []domain.RetrievedChunk) []domain.Source {
	if len(chunks) == 0 {
		return nil
	}
	sources := make([]domain.Source, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, domain.Source{
			SourceFile: c.Metadata["source"],
			Title:      c.Metadata["title"],
			Heading:    c.Metadata["heading"],
			Score:      c.Score,
		})
	}
	return sources
}
