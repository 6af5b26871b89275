package sse

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// plainRecorder hides httptest.ResponseRecorder's Flush method to
// exercise the non-flushable rejection path.
type plainRecorder struct {
	http.ResponseWriter
}

func TestNewEventWriter(t *testing.T) {
	t.Run("sets streaming headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, err := NewEventWriter(rec)
		if err != nil {
			t.Fatalf("NewEventWriter() error = %v", err)
		}
		if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
			t.Errorf("Content-Type = %q", got)
		}
		if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
			t.Errorf("Cache-Control = %q", got)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("rejects non-flushable writer", func(t *testing.T) {
		rec := &plainRecorder{ResponseWriter: httptest.NewRecorder()}
		if _, err := NewEventWriter(rec); err == nil {
			t.Fatal("NewEventWriter() accepted a writer without Flush")
		}
	})
}

func TestEventWriter_WriteEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewEventWriter(rec)
	if err != nil {
		t.Fatalf("NewEventWriter() error = %v", err)
	}

	if err := w.WriteEvent("content", map[string]string{"content": "hello"}); err != nil {
		t.Fatalf("WriteEvent() error = %v", err)
	}

	body := rec.Body.String()
	want := "event: content\ndata: {\"content\":\"hello\"}\n\n"
	if body != want {
		t.Errorf("frame = %q, want %q", body, want)
	}
}

func TestSSEKeepAliveWriter_WriteKeepAlive(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewEventWriter(rec)
	if err != nil {
		t.Fatalf("NewEventWriter() error = %v", err)
	}

	ka := KeepAliveWriterFor(w, "thread-1")
	if err := ka.WriteKeepAlive(); err != nil {
		t.Fatalf("WriteKeepAlive() error = %v", err)
	}

	if !strings.Contains(rec.Body.String(), ": keepalive\n\n") {
		t.Errorf("body = %q, want SSE comment", rec.Body.String())
	}
}
