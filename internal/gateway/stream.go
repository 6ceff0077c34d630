package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ContentChunk builds a chat.completion.chunk carrying one text delta.
func ContentChunk(id, model, content string) StreamChunk {
	return StreamChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []StreamChoice{
			{
				Index: 0,
				Delta: Delta{Content: content},
			},
		},
	}
}

// FinishChunk builds the closing chunk with an empty delta.
func FinishChunk(id, model, reason string) StreamChunk {
	c := ContentChunk(id, model, "")
	c.Choices[0].FinishReason = &reason
	return c
}

// WriteChunk encodes one chunk as an SSE data frame, flushing when w supports it.
func WriteChunk(w io.Writer, chunk StreamChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("marshal chunk: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flush(w)
	return nil
}

// WriteDone writes the terminal marker frame.
func WriteDone(w io.Writer) error {
	_, err := fmt.Fprint(w, "data: [DONE]\n\n")
	flush(w)
	return err
}

func flush(w io.Writer) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
