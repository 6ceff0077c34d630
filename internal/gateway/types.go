package gateway

import (
	"fmt"
	"net/http"

	"github.com/zhengjr9/portfolio-chat/internal/chat"
)

// Message is a single turn in an OpenAI-compatible chat request.
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

// CompletionRequest is sent to POST /v1/chat/completions.
type CompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// StreamChunk is one SSE data object in OpenAI streaming format.
type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice is a single choice delta in a stream chunk.
type StreamChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta carries incremental content in a stream chunk.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// UpstreamError is returned when a backend rejects a completion request.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %d: %s", e.StatusCode, e.Body)
}

// Is maps the upstream status onto the chat error taxonomy so callers can
// branch with errors.Is(err, chat.ErrRateLimited).
func (e *UpstreamError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return target == chat.ErrRateLimited
	case http.StatusPaymentRequired:
		return target == chat.ErrServiceUnavailable
	}
	return target == chat.ErrStreamStart
}
