package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/volcengine/veadk-go/apps"
	"github.com/volcengine/veadk-go/apps/a2a_app"
	"google.golang.org/adk/agent"

	"github.com/zhengjr9/portfolio-chat/internal/a2a"
	"github.com/zhengjr9/portfolio-chat/internal/config"
	"github.com/zhengjr9/portfolio-chat/internal/gateway"
	"github.com/zhengjr9/portfolio-chat/internal/httputil"
	"github.com/zhengjr9/portfolio-chat/internal/proxy"
)

func main() {
	cfg := config.Load()

	slog.Info("starting portfolio chat",
		"listen", cfg.ListenAddr,
		"backend", cfg.Backend,
		"model", cfg.Model(),
		"a2a_enabled", cfg.A2AEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := proxy.NewBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to create backend", "error", err)
		os.Exit(1)
	}

	// Always start the chat proxy.
	srv := proxy.New(cfg, backend)
	proxyErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			proxyErr <- err
		}
	}()

	// Optionally start the A2A server.
	a2aErr := make(chan error, 1)
	if cfg.A2AEnabled {
		if backend == nil {
			slog.Error("A2A requires an upstream API key", "backend", cfg.Backend)
			os.Exit(1)
		}
		assistant, err := a2a.New(a2a.AgentConfig{
			Name:         cfg.AgentName,
			Description:  cfg.AgentDesc,
			Backend:      backend,
			Model:        cfg.Model(),
			SystemPrompt: gateway.SystemPrompt,
			MaxTokens:    cfg.MaxTokens,
		})
		if err != nil {
			slog.Error("failed to create A2A agent", "error", err)
			os.Exit(1)
		}

		slog.Info("starting A2A server", "port", cfg.A2APort, "agent_name", cfg.AgentName)

		inner := a2a_app.NewAgentkitA2AServerApp(
			apps.DefaultApiConfig().SetPort(cfg.A2APort),
		)
		wrapped := &corsApp{BasicApp: inner, origin: cfg.AllowedOrigin}

		go func() {
			if err := wrapped.Run(ctx, &apps.RunConfig{
				AgentLoader: agent.NewSingleLoader(assistant),
			}); err != nil {
				a2aErr <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("proxy shutdown error", "error", err)
		}
	case err := <-proxyErr:
		slog.Error("proxy server error", "error", err)
		os.Exit(1)
	case err := <-a2aErr:
		slog.Error("A2A server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// corsApp wraps a BasicApp and installs a CORS middleware on the Gorilla mux
// router so the agent card and JSON-RPC endpoint can be called from the site.
type corsApp struct {
	apps.BasicApp
	origin string
}

// Run overrides the embedded Run so that apps.Run receives the wrapper as the
// app argument; otherwise SetupRouters below is never called.
func (w *corsApp) Run(ctx context.Context, config *apps.RunConfig) error {
	return apps.Run(ctx, config, w)
}

func (w *corsApp) SetupRouters(router *mux.Router, config *apps.RunConfig) error {
	if err := w.BasicApp.SetupRouters(router, config); err != nil {
		return err
	}
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			httputil.SetCORSHeaders(rw, w.origin)
			next.ServeHTTP(rw, r)
		})
	})
	return nil
}
