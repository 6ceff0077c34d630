package chat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// DoneMarker is the data payload that terminates a completion stream.
const DoneMarker = "[DONE]"

// deltaPath locates the incremental text inside a completion chunk.
const deltaPath = "choices.0.delta.content"

const dataPrefix = "data: "

// MutationKind says how a Mutation changes the transcript.
type MutationKind int

const (
	// AppendNew adds a new assistant message.
	AppendNew MutationKind = iota
	// AppendToLast replaces the content of the open assistant message.
	AppendToLast
)

func (k MutationKind) String() string {
	switch k {
	case AppendNew:
		return "append-new"
	case AppendToLast:
		return "append-to-last"
	}
	return fmt.Sprintf("MutationKind(%d)", int(k))
}

// Mutation is one transcript change produced by the Reducer.
type Mutation struct {
	Kind MutationKind
	// Content is the whole assistant text accumulated so far in this turn.
	Content string
	// Delta is the fragment that produced this mutation.
	Delta string
}

// FrameKind classifies a single line of the event stream.
type FrameKind int

const (
	FrameEmpty FrameKind = iota
	FrameComment
	FrameData
	FrameDone
	FrameOther
)

// ClassifyLine splits a line (without its delimiter) into a frame kind and,
// for data frames, the trimmed payload.
func ClassifyLine(line string) (FrameKind, string) {
	line = strings.TrimSuffix(line, "\r")
	switch {
	case strings.TrimSpace(line) == "":
		return FrameEmpty, ""
	case strings.HasPrefix(line, ":"):
		return FrameComment, ""
	}
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return FrameOther, ""
	}
	payload = strings.TrimSpace(payload)
	if payload == DoneMarker {
		return FrameDone, ""
	}
	return FrameData, payload
}

// Reducer folds a server-sent-event stream of completion chunks into
// transcript mutations. One Reducer serves exactly one assistant turn.
//
// Bytes are buffered until a full line is available, so chunks may split
// lines and multi-byte UTF-8 sequences anywhere. A data payload that is not
// valid JSON is held back and joined with the next data line of the same
// event; the event's blank line (or EOF) drops it if it still does not parse.
type Reducer struct {
	buf     []byte
	pending string
	text    strings.Builder
	opened  bool
	done    bool
}

// NewReducer returns a Reducer ready for a new turn.
func NewReducer() *Reducer {
	return &Reducer{}
}

// Feed consumes the next chunk of the stream and returns the mutations it
// completes, in arrival order.
func (r *Reducer) Feed(chunk []byte) []Mutation {
	if r.done {
		return nil
	}
	r.buf = append(r.buf, chunk...)

	var out []Mutation
	consumed := 0
	for !r.done {
		i := bytes.IndexByte(r.buf[consumed:], '\n')
		if i < 0 {
			break
		}
		line := string(r.buf[consumed : consumed+i])
		consumed += i + 1
		out = r.line(line, out)
	}

	if r.done {
		r.buf = nil
		return out
	}
	if consumed > 0 {
		r.buf = append(r.buf[:0], r.buf[consumed:]...)
	}
	return out
}

// Close flushes an unterminated final line at end of stream.
func (r *Reducer) Close() []Mutation {
	if r.done {
		return nil
	}
	var out []Mutation
	if len(r.buf) > 0 {
		out = r.line(string(r.buf), out)
		r.buf = nil
	}
	if r.pending != "" {
		slog.Debug("discarding incomplete frame at end of stream", "frame", r.pending)
		r.pending = ""
	}
	r.done = true
	return out
}

// Done reports whether the terminal marker was seen or Close was called.
func (r *Reducer) Done() bool { return r.done }

// Text returns the assistant text accumulated so far.
func (r *Reducer) Text() string { return r.text.String() }

func (r *Reducer) line(line string, out []Mutation) []Mutation {
	kind, payload := ClassifyLine(line)
	switch kind {
	case FrameEmpty:
		if r.pending != "" {
			slog.Debug("discarding unparsable frame", "frame", r.pending)
			r.pending = ""
		}
		return out
	case FrameComment, FrameOther:
		return out
	case FrameDone:
		r.pending = ""
		r.done = true
		return out
	}

	if r.pending != "" {
		joined := r.pending + "\n" + payload
		switch {
		case gjson.Valid(joined):
			payload = joined
		case gjson.Valid(payload):
			slog.Debug("discarding unparsable frame", "frame", r.pending)
		default:
			r.pending = joined
			return out
		}
		r.pending = ""
	}
	if !gjson.Valid(payload) {
		r.pending = payload
		return out
	}

	delta := gjson.Get(payload, deltaPath)
	if delta.Type != gjson.String || delta.Str == "" {
		return out
	}
	r.text.WriteString(delta.Str)

	m := Mutation{Kind: AppendNew, Content: r.text.String(), Delta: delta.Str}
	if r.opened {
		m.Kind = AppendToLast
	}
	r.opened = true
	return append(out, m)
}

// Reduce drives a fresh Reducer over src until EOF, the terminal marker, a
// read error or ctx cancellation, calling apply for every mutation. It returns
// the accumulated assistant text, which is valid even when err is non-nil.
func Reduce(ctx context.Context, src io.Reader, apply func(Mutation)) (string, error) {
	rd := NewReducer()
	emit := func(ms []Mutation) {
		for _, m := range ms {
			if apply != nil {
				apply(m)
			}
		}
	}

	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return rd.Text(), fmt.Errorf("%w: %w", ErrTransportInterrupted, err)
		}
		n, err := src.Read(buf)
		if n > 0 {
			emit(rd.Feed(buf[:n]))
			if rd.Done() {
				return rd.Text(), nil
			}
		}
		if err == io.EOF {
			emit(rd.Close())
			return rd.Text(), nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return rd.Text(), fmt.Errorf("%w: %w", ErrTransportInterrupted, ctxErr)
			}
			return rd.Text(), fmt.Errorf("%w: %w", ErrTransportInterrupted, err)
		}
	}
}
