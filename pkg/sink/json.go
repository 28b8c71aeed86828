package sink

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/matzehuels/roundabout/pkg/sim"
)

// JSONWriter writes frames as newline-delimited JSON.
type JSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	n   int
}

// NewJSONWriter returns a writer that encodes frames to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

// Publish writes f as one line.
func (w *JSONWriter) Publish(ctx context.Context, f sim.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(f); err != nil {
		return err
	}
	w.n++
	return nil
}

// Written returns the number of frames written.
func (w *JSONWriter) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}
