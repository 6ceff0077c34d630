package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/zhengjr9/portfolio-chat/internal/config"
	"github.com/zhengjr9/portfolio-chat/internal/gateway"
	"github.com/zhengjr9/portfolio-chat/internal/gemini"
)

// ChatPath is where the widget posts conversations.
const ChatPath = "/functions/v1/chat"

// Server is the chat proxy HTTP server.
type Server struct {
	httpServer *http.Server
}

// NewBackend builds the completion backend selected by cfg. It returns a nil
// Backend without error when the upstream key is missing, so the server can
// still start and answer with a configuration error.
func NewBackend(ctx context.Context, cfg *config.Config) (gateway.Backend, error) {
	if cfg.UpstreamKey() == "" {
		slog.Warn("upstream API key is not configured", "backend", cfg.Backend)
		return nil, nil
	}
	switch cfg.Backend {
	case config.BackendGateway, "":
		client := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayProxyURL)
		slog.Info("using AI gateway", "url", client.URL())
		return client, nil
	case config.BackendGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// New constructs a Server from the given config and backend. backend may be
// nil, in which case chat requests fail with a configuration error.
func New(cfg *config.Config, backend gateway.Backend) *Server {
	chatHandler := &ChatHandler{
		backend:      backend,
		model:        cfg.Model(),
		systemPrompt: gateway.SystemPrompt,
		maxHistory:   cfg.MaxHistory,
		maxTokens:    cfg.MaxTokens,
		clientKey:    cfg.ClientKey,
		timeout:      cfg.RequestTimeout,
	}

	router := mux.NewRouter()
	router.Handle(ChatPath, chatHandler).Methods(http.MethodPost)
	router.HandleFunc(ChatPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodOptions)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// Zero means no write deadline; streams are then bounded only by the client.
	var writeTimeout time.Duration
	if cfg.RequestTimeout > 0 {
		writeTimeout = cfg.RequestTimeout + 10*time.Second
	}

	// CORS wraps the router rather than router.Use so unmatched routes
	// (404, 405) carry the headers too.
	var handler http.Handler = corsMiddleware(cfg.AllowedOrigin)(router)
	handler = loggingMiddleware(handler)
	handler = recoveryMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins listening and blocks until the server is stopped.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the underlying http.Handler (for use in tests with httptest.NewServer).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
