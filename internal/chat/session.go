package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Streamer sends a conversation and streams the assistant reply.
type Streamer interface {
	Stream(ctx context.Context, messages []Message, apply func(Mutation)) (string, error)
}

// Session owns the transcript of one chat widget. Only one turn may stream at
// a time; Send returns ErrBusy while a reply is in flight.
type Session struct {
	streamer Streamer

	mu         sync.Mutex
	transcript *Transcript
	busy       bool
	onChange   func([]Message)
	// gen increments on Close; a turn started under an older gen is stale.
	gen    uint64
	cancel context.CancelFunc
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithGreeting overrides the seeded assistant greeting.
func WithGreeting(greeting string) SessionOption {
	return func(s *Session) { s.transcript = NewTranscript(greeting) }
}

// WithOnChange registers a callback invoked with a snapshot of the transcript
// after every change. It runs with the session lock held and must not call
// back into the Session.
func WithOnChange(fn func([]Message)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

// NewSession returns a session seeded with the greeting.
func NewSession(streamer Streamer, opts ...SessionOption) *Session {
	s := &Session{streamer: streamer, transcript: NewTranscript("")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send appends the user's message and streams the reply into the transcript.
// On failure the fixed fallback reply is appended and the error returned;
// partial assistant output already applied is kept. If Close runs while the
// reply streams, the turn is abandoned and ErrSessionClosed returned.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	gen := s.gen
	s.busy = true
	s.cancel = cancel
	s.transcript.Append(Message{Role: RoleUser, Content: text})
	history := s.transcript.Messages()
	s.notify()
	s.mu.Unlock()

	_, err := s.streamer.Stream(ctx, history, func(m Mutation) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			return
		}
		s.transcript.Apply(m)
		s.notify()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return ErrSessionClosed
	}
	s.busy = false
	s.cancel = nil
	if err != nil {
		slog.Warn("chat turn failed", "error", err)
		s.transcript.Append(Message{Role: RoleAssistant, Content: FallbackReply})
		s.notify()
		return err
	}
	return nil
}

// Close aborts any in-flight turn and resets the transcript to the greeting.
// Output of the aborted turn is dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.busy = false
	s.transcript.Reset()
	s.notify()
}

// Messages returns a snapshot of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Messages()
}

// Busy reports whether a reply is streaming.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.transcript.Messages())
	}
}
