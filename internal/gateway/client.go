package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Backend streams a completion as an OpenAI-style server-sent-event body.
// The caller closes the returned reader.
type Backend interface {
	Stream(ctx context.Context, req *CompletionRequest) (io.ReadCloser, error)
}

// Client sends requests to an OpenAI-compatible AI gateway.
type Client struct {
	// completionsURL is the full URL of the chat completions endpoint.
	// If the configured URL does not already end with "/v1/chat/completions"
	// the suffix is appended, so callers can pass either a host or the full URL.
	completionsURL string
	apiKey         string
	httpClient     *http.Client
}

// NewClient constructs a Client for the given base URL (or full endpoint URL)
// and bearer key. proxyURL may be empty to use the environment proxy.
func NewClient(baseURL, apiKey, proxyURL string) *Client {
	completionsURL := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(completionsURL, "/v1/chat/completions") {
		completionsURL += "/v1/chat/completions"
	}

	transport := &http.Transport{}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &Client{
		completionsURL: completionsURL,
		apiKey:         apiKey,
		// No client timeout: the context carries the deadline for streams.
		httpClient: &http.Client{Transport: transport},
	}
}

// URL returns the resolved completions endpoint.
func (c *Client) URL() string { return c.completionsURL }

// Stream sends a streaming completion request and returns the response body.
// Non-2xx responses are returned as *UpstreamError.
func (c *Client) Stream(ctx context.Context, req *CompletionRequest) (io.ReadCloser, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp.Body, nil
}
