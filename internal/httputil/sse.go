package httputil

import (
	"net/http"
	"strings"
)

// CORSAllowHeaders lists the request headers the browser widget may send.
const CORSAllowHeaders = "authorization, x-client-info, apikey, content-type"

// SetSSEHeaders sets the standard headers for a Server-Sent Events response.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SetCORSHeaders allows the widget's origin to call the chat endpoint.
func SetCORSHeaders(w http.ResponseWriter, origin string) {
	if origin == "" {
		origin = "*"
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Headers", CORSAllowHeaders)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header,
// or "" when the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}
