package ai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	chatTemperature = 0.7
	chatMaxTokens   = 2048
)

// ChatStream is a finite, non-restartable sequence of completion text
// fragments. Read Fragments until it closes, then check Err for the
// terminal status. Fragments already received stand even when Err is
// non-nil.
type ChatStream struct {
	fragments chan string
	err       error
}

// Fragments returns the channel of text deltas in arrival order.
func (s *ChatStream) Fragments() <-chan string {
	return s.fragments
}

// Err reports the terminal error, valid once Fragments has closed.
func (s *ChatStream) Err() error {
	return s.err
}

// NewScriptedStream returns a stream that yields the given fragments and
// finishes with err. Intended for test doubles.
func NewScriptedStream(err error, fragments ...string) *ChatStream {
	s := &ChatStream{fragments: make(chan string, len(fragments)), err: err}
	for _, f := range fragments {
		s.fragments <- f
	}
	close(s.fragments)
	return s
}

// OpenAIChatStreamer drives streaming chat completions with fixed
// sampling parameters.
type OpenAIChatStreamer struct {
	client *OpenAIClient
	model  string
}

// NewOpenAIChatStreamer builds a streamer for the given model.
func NewOpenAIChatStreamer(client *OpenAIClient, model string) (*OpenAIChatStreamer, error) {
	if client == nil {
		return nil, fmt.Errorf("openai client required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("generation model required")
	}
	return &OpenAIChatStreamer{client: client, model: model}, nil
}

// StreamChat submits the message sequence and returns a live stream of
// text deltas. Canceling ctx aborts the upstream call promptly; the
// cancellation surfaces through Err.
func (g *OpenAIChatStreamer) StreamChat(ctx context.Context, messages []ChatMessage) (*ChatStream, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("chat messages required")
	}
	reqBody := oaiChatRequest{
		Model:       g.model,
		Messages:    messages,
		Stream:      true,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	}
	req, err := g.client.newRequest(ctx, "/chat/completions", reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := g.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}

	stream := &ChatStream{fragments: make(chan string)}
	go stream.consume(ctx, resp.Body)
	return stream, nil
}

// consume parses server-sent events off the response body and forwards
// deltas until the terminator, an error, or cancellation.
func (s *ChatStream) consume(ctx context.Context, body io.ReadCloser) {
	defer close(s.fragments)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return
		}
		delta, err := decodeChatDelta(data)
		if err != nil {
			s.err = err
			return
		}
		if delta == "" {
			continue
		}
		select {
		case s.fragments <- delta:
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			s.err = ctx.Err()
			return
		}
		s.err = fmt.Errorf("openai stream: %w", err)
	}
}

func decodeChatDelta(data string) (string, error) {
	var event oaiChatStreamEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return "", fmt.Errorf("openai stream decode: %w", err)
	}
	if len(event.Choices) == 0 {
		return "", nil
	}
	return event.Choices[0].Delta.Content, nil
}

type oaiChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type oaiChatStreamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
