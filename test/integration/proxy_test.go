package integration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zhengjr9/portfolio-chat/internal/chat"
	"github.com/zhengjr9/portfolio-chat/internal/config"
	"github.com/zhengjr9/portfolio-chat/internal/proxy"
	"github.com/zhengjr9/portfolio-chat/test/testutil"
)

const (
	testAnswer     = "Efstathios is a CAMS certified AML specialist."
	testGatewayKey = "gw-test-key-12345"
)

func newTestProxy(t *testing.T, gatewayURL, gatewayKey string) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		ListenAddr:     ":0",
		AllowedOrigin:  "*",
		Backend:        config.BackendGateway,
		GatewayBaseURL: gatewayURL,
		GatewayAPIKey:  gatewayKey,
		GatewayModel:   "google/gemini-3-flash-preview",
		MaxHistory:     10,
		MaxTokens:      1000,
		RequestTimeout: 10 * time.Second,
	}
	backend, err := proxy.NewBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	srv := httptest.NewServer(proxy.New(cfg, backend).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestSession_EndToEnd(t *testing.T) {
	mock := testutil.NewMockGateway(testAnswer)
	defer mock.Close()

	proxySrv := newTestProxy(t, mock.URL(), testGatewayKey)
	session := chat.NewSession(chat.NewClient(proxySrv.URL+proxy.ChatPath, "", nil))

	if err := session.Send(context.Background(), "Who is Efstathios?"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs := session.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected greeting, question and reply, got %+v", msgs)
	}
	if msgs[2] != (chat.Message{Role: chat.RoleAssistant, Content: testAnswer}) {
		t.Errorf("expected reply %q, got %+v", testAnswer, msgs[2])
	}

	if got := mock.LastAuth(); got != "Bearer "+testGatewayKey {
		t.Errorf("expected gateway key forwarded, got %q", got)
	}
	req := mock.LastRequest()
	if stream, _ := req["stream"].(bool); !stream {
		t.Error("expected stream=true upstream")
	}
	if maxTokens, _ := req["max_tokens"].(float64); maxTokens != 1000 {
		t.Errorf("expected max_tokens=1000, got %v", req["max_tokens"])
	}
	messages, _ := req["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("expected system + greeting + question upstream, got %d", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" {
		t.Errorf("expected system prompt first, got %v", first["role"])
	}
}

func TestSession_SplitFramesUpstream(t *testing.T) {
	mock := testutil.NewMockGateway(testAnswer)
	mock.SplitFrames = true
	defer mock.Close()

	proxySrv := newTestProxy(t, mock.URL(), testGatewayKey)
	session := chat.NewSession(chat.NewClient(proxySrv.URL+proxy.ChatPath, "", nil))

	if err := session.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs := session.Messages()
	if len(msgs) != 3 || msgs[2].Content != testAnswer {
		t.Errorf("expected single reply %q, got %+v", testAnswer, msgs)
	}
}

func TestSession_HistoryTrimmedToTenTurns(t *testing.T) {
	mock := testutil.NewMockGateway("ok")
	defer mock.Close()

	proxySrv := newTestProxy(t, mock.URL(), testGatewayKey)
	session := chat.NewSession(chat.NewClient(proxySrv.URL+proxy.ChatPath, "", nil))

	for i := 0; i < 8; i++ {
		if err := session.Send(context.Background(), "question"); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	messages, _ := mock.LastRequest()["messages"].([]any)
	if len(messages) != 11 {
		t.Errorf("expected system + 10 turns upstream, got %d", len(messages))
	}
}

func TestSession_UpstreamStatuses(t *testing.T) {
	tests := []struct {
		upstream int
		want     error
	}{
		{http.StatusTooManyRequests, chat.ErrRateLimited},
		{http.StatusPaymentRequired, chat.ErrServiceUnavailable},
		{http.StatusInternalServerError, chat.ErrStreamStart},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.upstream), func(t *testing.T) {
			mock := testutil.NewMockGateway(testAnswer)
			mock.Status = tt.upstream
			defer mock.Close()

			proxySrv := newTestProxy(t, mock.URL(), testGatewayKey)
			session := chat.NewSession(chat.NewClient(proxySrv.URL+proxy.ChatPath, "", nil))

			err := session.Send(context.Background(), "hi")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			msgs := session.Messages()
			if last := msgs[len(msgs)-1]; last != (chat.Message{Role: chat.RoleAssistant, Content: chat.FallbackReply}) {
				t.Errorf("expected fallback reply, got %+v", last)
			}
		})
	}
}

func TestProxy_RateLimitBody(t *testing.T) {
	mock := testutil.NewMockGateway(testAnswer)
	mock.Status = http.StatusTooManyRequests
	defer mock.Close()

	proxySrv := newTestProxy(t, mock.URL(), testGatewayKey)

	body := `{"messages":[{"role":"user","content":"hi"}]}`
	resp, err := http.Post(proxySrv.URL+proxy.ChatPath, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 429, got %d: %s", resp.StatusCode, raw)
	}
	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["error"] != "Rate limit exceeded. Please try again later." {
		t.Errorf("unexpected error body %v", result)
	}
}

func TestProxy_MissingGatewayKey(t *testing.T) {
	mock := testutil.NewMockGateway(testAnswer)
	defer mock.Close()

	proxySrv := newTestProxy(t, mock.URL(), "")
	session := chat.NewSession(chat.NewClient(proxySrv.URL+proxy.ChatPath, "", nil))

	err := session.Send(context.Background(), "hi")
	var se *chat.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 StatusError, got %v", err)
	}
	if !strings.Contains(se.Message, "not configured") {
		t.Errorf("expected configuration message, got %q", se.Message)
	}
	if mock.LastRequest() != nil {
		t.Error("expected no upstream request")
	}
}
