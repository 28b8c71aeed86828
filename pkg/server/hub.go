package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/matzehuels/roundabout/pkg/sim"
)

// subscriberBuffer is how many frames a slow client may fall behind before
// frames are dropped for it.
const subscriberBuffer = 8

// Hub fans frames out to streaming clients. It implements [sim.Publisher].
type Hub struct {
	mu   sync.Mutex
	subs map[chan sim.Frame]struct{}
}

var _ sim.Publisher = (*Hub)(nil)

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan sim.Frame]struct{})}
}

// Publish delivers f to every subscriber without blocking. A subscriber
// whose buffer is full misses the frame.
func (h *Hub) Publish(ctx context.Context, f sim.Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- f:
		default:
		}
	}
	return nil
}

// Subscribe registers a new subscriber. The returned cancel func
// unregisters it and closes the channel.
func (h *Hub) Subscribe() (<-chan sim.Frame, func()) {
	ch := make(chan sim.Frame, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (s *Server) frames(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming unsupported"))
		return
	}
	ch, cancel := s.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case f := <-ch:
			data, err := json.Marshal(f)
			if err != nil {
				s.logger.Warn("encode frame", "seq", f.Seq, "err", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: frame\ndata: %s\n\n", f.Seq, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
