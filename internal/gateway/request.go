package gateway

import (
	"github.com/zhengjr9/portfolio-chat/internal/chat"
)

const (
	DefaultModel      = "google/gemini-3-flash-preview"
	DefaultMaxHistory = 10
	DefaultMaxTokens  = 1000
)

// BuildRequest prepends the system prompt to the most recent maxHistory turns
// of history. Turns with roles other than user and assistant are dropped so a
// caller cannot smuggle in its own system message.
func BuildRequest(model, systemPrompt string, history []chat.Message, maxHistory, maxTokens int) *CompletionRequest {
	if model == "" {
		model = DefaultModel
	}
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	turns := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role != chat.RoleUser && m.Role != chat.RoleAssistant {
			continue
		}
		turns = append(turns, Message{Role: string(m.Role), Content: m.Content})
	}
	if len(turns) > maxHistory {
		turns = turns[len(turns)-maxHistory:]
	}

	msgs := make([]Message, 0, len(turns)+1)
	if systemPrompt != "" {
		msgs = append(msgs, Message{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, turns...)

	return &CompletionRequest{
		Model:     model,
		Messages:  msgs,
		Stream:    true,
		MaxTokens: maxTokens,
	}
}
