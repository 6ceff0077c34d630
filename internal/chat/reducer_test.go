package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func frame(content string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
}

// feedAll runs chunks through a fresh reducer and applies the mutations to a
// fresh transcript, mirroring what Session does.
func feedAll(chunks ...string) (*Transcript, []Mutation) {
	tr := NewTranscript("")
	tr.Append(Message{Role: RoleUser, Content: "hi"})
	rd := NewReducer()
	var all []Mutation
	for _, c := range chunks {
		all = append(all, rd.Feed([]byte(c))...)
	}
	all = append(all, rd.Close()...)
	for _, m := range all {
		tr.Apply(m)
	}
	return tr, all
}

func TestReducer_SplitMidStringValue(t *testing.T) {
	tr, muts := feedAll(
		`data: {"choices":[{"delta":{"content":"Hel`,
		"lo\"}}]}\n\n",
	)
	if len(muts) != 1 {
		t.Fatalf("expected 1 mutation, got %d", len(muts))
	}
	if tr.Len() != 3 {
		t.Fatalf("expected greeting, user and one assistant message, got %d messages", tr.Len())
	}
	if got := tr.Last(); got.Role != RoleAssistant || got.Content != "Hello" {
		t.Errorf("expected assistant %q, got %s %q", "Hello", got.Role, got.Content)
	}
}

func TestReducer_AppendsToOpenMessage(t *testing.T) {
	tr, muts := feedAll(frame("Hello") + frame(", ") + frame("world"))
	if len(muts) != 3 {
		t.Fatalf("expected 3 mutations, got %d", len(muts))
	}
	if muts[0].Kind != AppendNew {
		t.Errorf("first mutation: expected %s, got %s", AppendNew, muts[0].Kind)
	}
	for i, m := range muts[1:] {
		if m.Kind != AppendToLast {
			t.Errorf("mutation %d: expected %s, got %s", i+1, AppendToLast, m.Kind)
		}
	}
	if tr.Len() != 3 {
		t.Fatalf("expected 3 messages, got %d", tr.Len())
	}
	if got := tr.Last().Content; got != "Hello, world" {
		t.Errorf("expected %q, got %q", "Hello, world", got)
	}
}

func TestReducer_IgnoresCommentsAndBlankLines(t *testing.T) {
	_, muts := feedAll(": keep-alive\n\n\r\n:\n   \n")
	if len(muts) != 0 {
		t.Errorf("expected no mutations, got %d", len(muts))
	}
}

func TestReducer_IgnoresNonDataFields(t *testing.T) {
	_, muts := feedAll("event: message\nid: 7\nretry: 100\n" + frame("ok"))
	if len(muts) != 1 || muts[0].Content != "ok" {
		t.Errorf("expected a single %q mutation, got %+v", "ok", muts)
	}
}

func TestReducer_DoneHaltsWithinChunk(t *testing.T) {
	rd := NewReducer()
	muts := rd.Feed([]byte(frame("a") + "data: [DONE]\n\n" + frame("b")))
	if len(muts) != 1 {
		t.Fatalf("expected 1 mutation, got %d", len(muts))
	}
	if !rd.Done() {
		t.Fatal("expected reducer to be done")
	}
	if more := rd.Feed([]byte(frame("c"))); len(more) != 0 {
		t.Errorf("expected no mutations after [DONE], got %d", len(more))
	}
	if more := rd.Close(); len(more) != 0 {
		t.Errorf("expected no mutations from Close after [DONE], got %d", len(more))
	}
	if rd.Text() != "a" {
		t.Errorf("expected text %q, got %q", "a", rd.Text())
	}
}

func TestReducer_DiscardsFramesWithoutDelta(t *testing.T) {
	stream := `data: {"choices":[{"delta":{"role":"assistant"}}]}` + "\n\n" +
		`data: {"choices":[{"delta":{"content":""}}]}` + "\n\n" +
		`data: {"choices":[]}` + "\n\n" +
		`data: {"usage":{"total_tokens":3}}` + "\n\n" +
		`data: {"choices":[{"delta":{"content":42}}]}` + "\n\n" +
		frame("x")
	_, muts := feedAll(stream)
	if len(muts) != 1 || muts[0].Kind != AppendNew || muts[0].Content != "x" {
		t.Errorf("expected a single append-new %q, got %+v", "x", muts)
	}
}

func TestReducer_CRLFLineEndings(t *testing.T) {
	stream := strings.ReplaceAll(frame("one")+frame(" two"), "\n", "\r\n")
	tr, _ := feedAll(stream)
	if got := tr.Last().Content; got != "one two" {
		t.Errorf("expected %q, got %q", "one two", got)
	}
}

func TestReducer_MalformedFrameDroppedAtEventEnd(t *testing.T) {
	stream := "data: {not json\n\n" + frame("after")
	tr, muts := feedAll(stream)
	if len(muts) != 1 {
		t.Fatalf("expected 1 mutation, got %d", len(muts))
	}
	if got := tr.Last().Content; got != "after" {
		t.Errorf("expected %q, got %q", "after", got)
	}
}

func TestReducer_MalformedFrameFollowedByValidLine(t *testing.T) {
	// No blank line between frames: the valid frame must not be swallowed.
	stream := "data: {broken\n" + strings.TrimSuffix(frame("ok"), "\n")
	_, muts := feedAll(stream)
	if len(muts) != 1 || muts[0].Content != "ok" {
		t.Errorf("expected a single %q mutation, got %+v", "ok", muts)
	}
}

func TestReducer_JSONSpreadOverDataLines(t *testing.T) {
	stream := "data: {\"choices\":[{\"delta\":\n" + "data: {\"content\":\"joined\"}}]}\n\n"
	_, muts := feedAll(stream)
	if len(muts) != 1 || muts[0].Content != "joined" {
		t.Errorf("expected a single %q mutation, got %+v", "joined", muts)
	}
}

func TestReducer_UnterminatedFinalLineFlushedOnClose(t *testing.T) {
	stream := frame("a") + strings.TrimSuffix(frame("b"), "\n\n")
	tr, _ := feedAll(stream)
	if got := tr.Last().Content; got != "ab" {
		t.Errorf("expected %q, got %q", "ab", got)
	}
}

func TestReducer_ChunkBoundaryInvariance(t *testing.T) {
	stream := ": ping\n" +
		frame("Grüße ") +
		frame("from ") +
		"\r\n" +
		frame("Ελλάδα ⚡") +
		`data: {"choices":[{"delta":{}}]}` + "\n\n" +
		frame(" & \"quotes\"") +
		"data: [DONE]\n\n" +
		frame("ignored")

	want, _ := feedAll(stream)
	wantText := "Grüße from Ελλάδα ⚡ & \"quotes\""
	if got := want.Last().Content; got != wantText {
		t.Fatalf("unsplit: expected %q, got %q", wantText, got)
	}

	for i := 1; i < len(stream); i++ {
		got, _ := feedAll(stream[:i], stream[i:])
		if got.Len() != want.Len() || got.Last() != want.Last() {
			t.Fatalf("split at byte %d: expected %+v, got %+v", i, want.Messages(), got.Messages())
		}
	}

	// One byte at a time.
	chunks := make([]string, len(stream))
	for i := 0; i < len(stream); i++ {
		chunks[i] = stream[i : i+1]
	}
	got, _ := feedAll(chunks...)
	if got.Last() != want.Last() {
		t.Errorf("byte-wise: expected %+v, got %+v", want.Last(), got.Last())
	}
}

func TestReducer_ContentIsConcatenationOfDeltas(t *testing.T) {
	deltas := []string{"The ", "quick ", "brown ", "fox", " ✓"}
	var sb strings.Builder
	for _, d := range deltas {
		sb.WriteString(frame(d))
	}
	_, muts := feedAll(sb.String())
	if len(muts) != len(deltas) {
		t.Fatalf("expected %d mutations, got %d", len(deltas), len(muts))
	}
	var concat strings.Builder
	for i, m := range muts {
		if m.Delta != deltas[i] {
			t.Errorf("mutation %d: expected delta %q, got %q", i, deltas[i], m.Delta)
		}
		concat.WriteString(m.Delta)
		if m.Content != concat.String() {
			t.Errorf("mutation %d: expected content %q, got %q", i, concat.String(), m.Content)
		}
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line    string
		kind    FrameKind
		payload string
	}{
		{"", FrameEmpty, ""},
		{"  \r", FrameEmpty, ""},
		{": comment", FrameComment, ""},
		{"data: [DONE]", FrameDone, ""},
		{"data:  [DONE] \r", FrameDone, ""},
		{"data: {\"a\":1} ", FrameData, "{\"a\":1}"},
		{"data:{\"a\":1}", FrameOther, ""},
		{"event: ping", FrameOther, ""},
	}
	for _, tt := range tests {
		kind, payload := ClassifyLine(tt.line)
		if kind != tt.kind || payload != tt.payload {
			t.Errorf("ClassifyLine(%q) = (%d, %q), expected (%d, %q)", tt.line, kind, payload, tt.kind, tt.payload)
		}
	}
}

func TestReduce_ReadsInSmallChunks(t *testing.T) {
	stream := frame("Hello") + frame(" there") + "data: [DONE]\n\n"
	var muts []Mutation
	text, err := Reduce(context.Background(), iotest.OneByteReader(strings.NewReader(stream)), func(m Mutation) {
		muts = append(muts, m)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello there" {
		t.Errorf("expected %q, got %q", "Hello there", text)
	}
	if len(muts) != 2 {
		t.Errorf("expected 2 mutations, got %d", len(muts))
	}
}

func TestReduce_ReadErrorIsTransportInterrupted(t *testing.T) {
	src := io.MultiReader(strings.NewReader(frame("partial")), iotest.ErrReader(errors.New("connection reset")))
	text, err := Reduce(context.Background(), src, nil)
	if !errors.Is(err, ErrTransportInterrupted) {
		t.Fatalf("expected ErrTransportInterrupted, got %v", err)
	}
	if text != "partial" {
		t.Errorf("expected partial text %q, got %q", "partial", text)
	}
}

func TestReduce_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Reduce(ctx, strings.NewReader(frame("x")), nil)
	if !errors.Is(err, ErrTransportInterrupted) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected interrupted and canceled, got %v", err)
	}
}
