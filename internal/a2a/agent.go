package a2a

import (
	"fmt"
	"iter"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/zhengjr9/portfolio-chat/internal/chat"
	"github.com/zhengjr9/portfolio-chat/internal/gateway"
)

// AgentConfig holds the configuration for the portfolio assistant agent.
type AgentConfig struct {
	// Name is the agent name exposed via A2A AgentCard.
	Name string
	// Description is exposed via A2A AgentCard.
	Description string
	// Backend streams completions; the same one the chat proxy uses.
	Backend gateway.Backend
	// Model, SystemPrompt and MaxTokens shape each upstream request.
	Model        string
	SystemPrompt string
	MaxTokens    int
}

// New returns an agent.Agent that answers each A2A message by streaming a
// completion from the backend and reducing it with the chat reducer.
func New(cfg AgentConfig) (agent.Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("a2a agent: Name must not be empty")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("a2a agent: Backend must not be nil")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = gateway.SystemPrompt
	}

	return agent.New(agent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		Run:         runFunc(cfg),
	})
}

// runFunc returns the Run closure that drives one agent invocation.
func runFunc(cfg AgentConfig) func(agent.InvocationContext) iter.Seq2[*session.Event, error] {
	return func(ctx agent.InvocationContext) iter.Seq2[*session.Event, error] {
		return func(yield func(*session.Event, error) bool) {
			query := extractQuery(ctx.UserContent())
			if query == "" {
				ev := session.NewEvent(ctx.InvocationID())
				ev.Author = cfg.Name
				ev.LLMResponse = model.LLMResponse{
					Content: textContent("(empty input)"),
				}
				yield(ev, nil)
				return
			}

			req := gateway.BuildRequest(cfg.Model, cfg.SystemPrompt,
				[]chat.Message{{Role: chat.RoleUser, Content: query}}, 1, cfg.MaxTokens)
			body, err := cfg.Backend.Stream(ctx, req)
			if err != nil {
				yield(nil, fmt.Errorf("completion request failed: %w", err))
				return
			}
			defer body.Close()

			// Emit a partial event per delta so streaming A2A clients see
			// tokens as they arrive.
			stopped := false
			fullText, err := chat.Reduce(ctx, body, func(m chat.Mutation) {
				if stopped {
					return
				}
				partialEv := session.NewEvent(ctx.InvocationID())
				partialEv.Author = cfg.Name
				partialEv.Branch = ctx.Branch()
				partialEv.LLMResponse = model.LLMResponse{
					Content: textContent(m.Delta),
					Partial: true,
				}
				stopped = !yield(partialEv, nil)
			})
			if stopped {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("completion stream error: %w", err))
				return
			}

			// The final (non-partial) event carries the complete answer so that
			// IsFinalResponse() returns true and the runner closes the invocation.
			finalEv := session.NewEvent(ctx.InvocationID())
			finalEv.Author = cfg.Name
			finalEv.Branch = ctx.Branch()
			finalEv.LLMResponse = model.LLMResponse{
				Content: textContent(fullText),
				Partial: false,
			}
			yield(finalEv, nil)
		}
	}
}

// extractQuery pulls the plain-text content from the genai.Content that ADK
// puts in the InvocationContext when the caller sends a message.
func extractQuery(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// textContent is a small helper that wraps a string into a *genai.Content.
func textContent(text string) *genai.Content {
	return &genai.Content{
		Role:  genai.RoleModel,
		Parts: []*genai.Part{{Text: text}},
	}
}
