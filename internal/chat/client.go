package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// Client posts conversations to the chat endpoint and reduces the streamed
// reply.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Client for the given endpoint URL and bearer key.
// httpClient may be nil; streaming relies on the context for deadlines, so the
// client should not carry a Timeout.
func NewClient(url, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{url: url, apiKey: apiKey, httpClient: httpClient}
}

type streamRequest struct {
	Messages []Message `json:"messages"`
}

// Stream sends messages and applies each mutation of the reply as it
// arrives. It returns the full assistant text.
func (c *Client) Stream(ctx context.Context, messages []Message, apply func(Mutation)) (string, error) {
	body, err := json.Marshal(streamRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStreamStart, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{StatusCode: resp.StatusCode, Message: gjson.GetBytes(raw, "error").String()}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return "", fmt.Errorf("%w: empty response body", ErrStreamStart)
	}

	return Reduce(ctx, resp.Body, apply)
}
