// Package gemini implements gateway.Backend directly on the Gemini API and
// re-encodes its stream as OpenAI-style completion chunks, so the chat widget
// sees the same wire format whichever backend the proxy is configured with.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/zhengjr9/portfolio-chat/internal/gateway"
)

const (
	DefaultModel       = "gemini-3-flash-preview"
	defaultTemperature = 0.7
)

// Config holds the settings for the Gemini backend.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint. Used by tests.
	BaseURL string
}

// Backend streams completions from the Gemini API.
type Backend struct {
	client *genai.Client
	model  string
}

// New constructs a Backend.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini backend: APIKey must not be empty")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Backend{client: client, model: cfg.Model}, nil
}

// Stream starts a Gemini stream for req and returns it as an SSE body. The
// first upstream error is returned directly so that status mapping happens
// before any bytes reach the caller; later errors end the body early.
func (b *Backend) Stream(ctx context.Context, req *gateway.CompletionRequest) (io.ReadCloser, error) {
	system, contents := toContents(req.Messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini backend: no user or assistant turns")
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](defaultTemperature),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	ctx, cancel := context.WithCancel(ctx)
	next, stop := iter.Pull2(b.client.Models.GenerateContentStream(ctx, b.model, contents, config))

	first, err, ok := next()
	if ok && err != nil {
		stop()
		cancel()
		return nil, mapError(err)
	}

	pr, pw := io.Pipe()
	id := "chatcmpl-" + uuid.NewString()
	go func() {
		defer cancel()
		defer stop()

		resp := first
		for ok {
			if err != nil {
				slog.Error("gemini stream error", "error", err)
				pw.CloseWithError(mapError(err))
				return
			}
			if text := responseText(resp); text != "" {
				if werr := gateway.WriteChunk(pw, gateway.ContentChunk(id, b.model, text)); werr != nil {
					pw.CloseWithError(werr)
					return
				}
			}
			resp, err, ok = next()
		}
		_ = gateway.WriteChunk(pw, gateway.FinishChunk(id, b.model, "stop"))
		_ = gateway.WriteDone(pw)
		pw.Close()
	}()
	return &streamBody{PipeReader: pr, cancel: cancel}, nil
}

// streamBody cancels the upstream request when the reader is closed early.
type streamBody struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (s *streamBody) Close() error {
	s.cancel()
	return s.PipeReader.Close()
}

// toContents splits OpenAI-style messages into a system instruction and
// Gemini contents. Assistant turns become the "model" role.
func toContents(msgs []gateway.Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	return strings.Join(system, "\n\n"), contents
}

// responseText concatenates the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// mapError converts Gemini API errors into *gateway.UpstreamError so the
// proxy applies the same status mapping as for the HTTP gateway.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &gateway.UpstreamError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &gateway.UpstreamError{StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return err
}
