package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEWriter emits Server-Sent Events with named events, flushing after each
// complete event so fragments reach the client immediately. It is not safe
// for concurrent use; each stream is written by a single handler goroutine,
// which also guarantees an "event:" line is never separated from its data.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares w for event streaming and sends the response
// headers. Callers must only construct the writer once the upstream is
// established, since this commits the 200 status.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	// Disable proxy buffering (nginx and friends) so events are not batched.
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteNamedEvent writes one complete event: the "event:" line, the JSON
// "data:" line, the terminating blank line, then a flush.
func (s *SSEWriter) WriteNamedEvent(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", name, err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
