package sse

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	chatModels "parley/internal/domain/models/chat"
)

// EventWriter writes SSE frames for one inference stream. It owns the
// response headers and flush-per-event behavior; event ordering and the
// terminal-event guarantee are the caller's responsibility.
type EventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher

	// mu serializes event frames against keep-alive comments written
	// from the ticker goroutine.
	mu sync.Mutex
}

// NewEventWriter prepares an SSE response. Returns an error if the
// ResponseWriter cannot flush (streaming would silently buffer).
func NewEventWriter(w http.ResponseWriter) (*EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &EventWriter{w: w, flusher: flusher}, nil
}

// WriteEvent writes one `event: <type>\ndata: <json>\n\n` frame and
// flushes it to the client
func (e *EventWriter) WriteEvent(eventType string, data interface{}) error {
	frame, err := chatModels.FormatSSE(eventType, data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := io.WriteString(e.w, frame); err != nil {
		return fmt.Errorf("write SSE frame: %w", err)
	}

	e.flusher.Flush()
	return nil
}

// SSEKeepAliveWriter emits SSE comment lines to hold the connection
// open while the provider is quiet. Clients ignore comment frames.
type SSEKeepAliveWriter struct {
	w        http.ResponseWriter
	flusher  http.Flusher
	threadID string
	mu       *sync.Mutex
}

// KeepAliveWriterFor adapts an EventWriter for periodic keep-alives,
// sharing its mutex so comments never interleave with event frames.
func KeepAliveWriterFor(e *EventWriter, threadID string) *SSEKeepAliveWriter {
	return &SSEKeepAliveWriter{
		w:        e.w,
		flusher:  e.flusher,
		threadID: threadID,
		mu:       &e.mu,
	}
}

// WriteKeepAlive writes a ": keepalive" comment frame and flushes it.
func (s *SSEKeepAliveWriter) WriteKeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	s.flusher.Flush()

	// A zero-byte write surfaces a closed connection that the comment
	// write may have buffered past.
	if _, err := s.w.Write([]byte{}); err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}
	return nil
}
