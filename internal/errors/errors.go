package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	ErrMissingAPIKey    = errors.New("missing API key")
	ErrMalformedBody    = errors.New("malformed request body")
	ErrGatewayNotConfig = errors.New("AI gateway API key is not configured")
)

// User-facing messages for upstream failures.
const (
	MsgRateLimited        = "Rate limit exceeded. Please try again later."
	MsgServiceUnavailable = "Service temporarily unavailable."
	MsgAIServiceError     = "AI service error"
)

type jsonError struct {
	Error string `json:"error"`
}

// WriteJSONError writes {"error": message} with the given status.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(jsonError{Error: message})
}
