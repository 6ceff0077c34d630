package proxy

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zhengjr9/portfolio-chat/internal/chat"
	apierrors "github.com/zhengjr9/portfolio-chat/internal/errors"
	"github.com/zhengjr9/portfolio-chat/internal/gateway"
	"github.com/zhengjr9/portfolio-chat/internal/httputil"
)

// ChatHandler implements the widget's chat function: it forwards the
// conversation to the configured backend and relays the SSE reply verbatim.
type ChatHandler struct {
	backend      gateway.Backend
	model        string
	systemPrompt string
	maxHistory   int
	maxTokens    int
	clientKey    string
	timeout      time.Duration
}

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

// ServeHTTP handles POST /functions/v1/chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		apierrors.WriteJSONError(w, http.StatusUnauthorized, apierrors.ErrMissingAPIKey.Error())
		return
	}
	if h.backend == nil {
		slog.Error("chat request rejected", "error", apierrors.ErrGatewayNotConfig)
		apierrors.WriteJSONError(w, http.StatusInternalServerError, apierrors.ErrGatewayNotConfig.Error())
		return
	}

	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		apierrors.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", apierrors.ErrMalformedBody, err))
		return
	}
	if len(req.Messages) == 0 {
		apierrors.WriteJSONError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	upstream := gateway.BuildRequest(h.model, h.systemPrompt, req.Messages, h.maxHistory, h.maxTokens)
	body, err := h.backend.Stream(ctx, upstream)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	defer body.Close()

	httputil.SetSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	fw := newFlushWriter(w)
	fw.Flush()
	if _, err := io.Copy(fw, body); err != nil {
		// Headers are gone; the widget sees a truncated stream.
		slog.Warn("chat stream interrupted", "error", err)
	}
}

// authorized reports whether r carries the configured client key. An empty
// client key disables the check.
func (h *ChatHandler) authorized(r *http.Request) bool {
	if h.clientKey == "" {
		return true
	}
	token := httputil.BearerToken(r)
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.clientKey)) == 1
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrRateLimited):
		apierrors.WriteJSONError(w, http.StatusTooManyRequests, apierrors.MsgRateLimited)
		return
	case errors.Is(err, chat.ErrServiceUnavailable):
		apierrors.WriteJSONError(w, http.StatusPaymentRequired, apierrors.MsgServiceUnavailable)
		return
	}

	var ue *gateway.UpstreamError
	if errors.As(err, &ue) {
		slog.Error("AI gateway error", "status", ue.StatusCode, "body", ue.Body)
	} else {
		slog.Error("chat function error", "error", err)
	}
	apierrors.WriteJSONError(w, http.StatusInternalServerError, apierrors.MsgAIServiceError)
}
