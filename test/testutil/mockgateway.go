package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockGateway is an httptest.Server that simulates an OpenAI-compatible
// /v1/chat/completions endpoint.
type MockGateway struct {
	Server *httptest.Server

	// Answer is streamed word by word.
	Answer string
	// Status, when non-zero and not 200, is returned instead of a stream.
	Status int
	// SplitFrames writes every data frame in two halves with a flush in
	// between, splitting the JSON mid-value.
	SplitFrames bool

	mu          sync.Mutex
	lastRequest map[string]any
	lastAuth    string
}

// NewMockGateway creates and starts a mock gateway.
func NewMockGateway(answer string) *MockGateway {
	m := &MockGateway{Answer: answer}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Close shuts down the mock server.
func (m *MockGateway) Close() {
	m.Server.Close()
}

// URL returns the base URL of the mock server.
func (m *MockGateway) URL() string {
	return m.Server.URL
}

// LastRequest returns the most recent request body parsed.
func (m *MockGateway) LastRequest() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// LastAuth returns the Authorization header of the most recent request.
func (m *MockGateway) LastAuth() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAuth
}

func (m *MockGateway) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	m.lastRequest = body
	m.lastAuth = r.Header.Get("Authorization")
	m.mu.Unlock()

	if m.Status != 0 && m.Status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(m.Status)
		fmt.Fprintf(w, `{"error":{"message":"mock status %d"}}`, m.Status)
		return
	}
	m.writeStreaming(w)
}

func (m *MockGateway) writeStreaming(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, hasFlusher := w.(http.Flusher)
	flush := func() {
		if hasFlusher {
			flusher.Flush()
		}
	}

	fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
	flush()

	for i, word := range strings.Fields(m.Answer) {
		if i > 0 {
			word = " " + word
		}
		chunk := map[string]any{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion.chunk",
			"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": word}}},
		}
		data, _ := json.Marshal(chunk)
		frame := fmt.Sprintf("data: %s\n\n", data)
		if m.SplitFrames {
			half := len(frame) / 2
			fmt.Fprint(w, frame[:half])
			flush()
			frame = frame[half:]
		}
		fmt.Fprint(w, frame)
		flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flush()
}
