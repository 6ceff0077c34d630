package chat

import (
	"errors"
	"fmt"
	"net/http"
)

// Terminal failures of a chat turn. None of them is retried.
var (
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrServiceUnavailable   = errors.New("service temporarily unavailable")
	ErrStreamStart          = errors.New("failed to start stream")
	ErrTransportInterrupted = errors.New("stream interrupted")

	ErrBusy          = errors.New("a reply is still streaming")
	ErrEmptyInput    = errors.New("message must not be empty")
	ErrSessionClosed = errors.New("session closed during reply")
)

// StatusError is returned when the chat endpoint answers with a non-success
// status. It matches the sentinel for its status code via errors.Is.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat endpoint returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("chat endpoint returned %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return target == ErrRateLimited
	case http.StatusPaymentRequired:
		return target == ErrServiceUnavailable
	}
	return target == ErrStreamStart
}

// IsRateLimited reports whether err is a rate-limit failure.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsServiceUnavailable reports whether err is a quota or billing failure.
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}
