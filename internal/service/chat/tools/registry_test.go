package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	chatModels "parley/internal/domain/models/chat"
)

// mockExporter is a canned DeckExporter.
type mockExporter struct {
	url string
	err error
}

func (m *mockExporter) Export(ctx context.Context, threadID, deckJSON string) (string, error) {
	return m.url, m.err
}

func newTestRegistry(repo *mockExtensionRepo) *Registry {
	logger := discardLogger()
	image := NewImageTool(nil, nil, nil, logger)
	deck := NewDeckTool(&mockExporter{url: "https://example.com/deck.pptx"}, logger)
	dynamic := NewDynamicTools(repo, nil, logger)
	return NewRegistry(image, deck, dynamic, logger)
}

func TestRegistry_Resolve(t *testing.T) {
	repo := &mockExtensionRepo{extensions: []chatModels.Extension{weatherExtension("http://unused")}}
	r := newTestRegistry(repo)

	t.Run("image tool always present", func(t *testing.T) {
		thread := &chatModels.Thread{ID: "t1", UserID: "u1"}
		repo := &mockExtensionRepo{}
		r := newTestRegistry(repo)

		defs := r.Resolve(context.Background(), thread, "hash", "hello")
		if len(defs) != 1 || defs[0].Name != "create_img" {
			t.Fatalf("defs = %+v, want only create_img", names(defs))
		}
	})

	t.Run("deck tool gated on marker extension", func(t *testing.T) {
		thread := &chatModels.Thread{ID: "t1", UserID: "u1", ExtensionIDs: []string{PPTExtensionID}}
		repo := &mockExtensionRepo{}
		r := newTestRegistry(repo)

		defs := r.Resolve(context.Background(), thread, "hash", "hello")
		if !contains(names(defs), "export_ppt") {
			t.Errorf("defs = %v, want export_ppt for marked thread", names(defs))
		}
	})

	t.Run("dynamic extensions contribute their functions", func(t *testing.T) {
		thread := &chatModels.Thread{ID: "t1", UserID: "u1", ExtensionIDs: []string{"weather"}}
		defs := r.Resolve(context.Background(), thread, "hash", "hello")
		if !contains(names(defs), "get_weather") {
			t.Errorf("defs = %v, want get_weather", names(defs))
		}
	})

	t.Run("dynamic resolution failure keeps built-ins", func(t *testing.T) {
		thread := &chatModels.Thread{ID: "t1", UserID: "u1", ExtensionIDs: []string{"weather"}}
		broken := &mockExtensionRepo{listErr: errors.New("db down")}
		r := newTestRegistry(broken)

		defs := r.Resolve(context.Background(), thread, "hash", "hello")
		if !contains(names(defs), "create_img") {
			t.Errorf("defs = %v, built-in tool lost on dynamic failure", names(defs))
		}
	})
}

func names(defs []Definition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestImageTool_PromptValidation(t *testing.T) {
	// Validation failures never reach the image API, so a nil client is
	// safe here.
	tool := NewImageTool(nil, nil, nil, discardLogger())
	def := tool.Definition("thread-1", "create an image of a cat")

	t.Run("missing prompt", func(t *testing.T) {
		got := def.Execute(context.Background(), `{}`)
		if got != "No prompt provided" {
			t.Errorf("result = %q", got)
		}
	})

	t.Run("malformed arguments", func(t *testing.T) {
		got := def.Execute(context.Background(), `{broken`)
		if got != "No prompt provided" {
			t.Errorf("result = %q", got)
		}
	})

	t.Run("oversized prompt", func(t *testing.T) {
		args, _ := json.Marshal(map[string]string{"prompt": strings.Repeat("a", 4000)})
		got := def.Execute(context.Background(), string(args))
		if got != "Prompt is too long, it must be less than 4000 characters" {
			t.Errorf("result = %q", got)
		}
	})
}

func TestDeckTool_Execute(t *testing.T) {
	deckJSON := `{"pageTitle":{"title":"Demo","subtitle":""},"pageSummary":[],"pageContents":[]}`

	t.Run("valid payload returns download url", func(t *testing.T) {
		tool := NewDeckTool(&mockExporter{url: "https://example.com/deck.pptx"}, discardLogger())
		def := tool.Definition("thread-1")

		args, _ := json.Marshal(map[string]string{"prompt": deckJSON})
		got := def.Execute(context.Background(), string(args))

		var payload map[string]string
		if err := json.Unmarshal([]byte(got), &payload); err != nil {
			t.Fatalf("result is not JSON: %v\n%s", err, got)
		}
		if payload["url_to_download"] != "https://example.com/deck.pptx" {
			t.Errorf("payload = %v", payload)
		}
	})

	t.Run("non-JSON deck payload rejected before export", func(t *testing.T) {
		tool := NewDeckTool(&mockExporter{err: errors.New("should not be called")}, discardLogger())
		def := tool.Definition("thread-1")

		args, _ := json.Marshal(map[string]string{"prompt": "not a json deck"})
		got := def.Execute(context.Background(), string(args))
		if !strings.Contains(got, "not valid JSON") {
			t.Errorf("result = %q", got)
		}
	})

	t.Run("exporter failure folded into result", func(t *testing.T) {
		tool := NewDeckTool(&mockExporter{err: errors.New("render timeout")}, discardLogger())
		def := tool.Definition("thread-1")

		args, _ := json.Marshal(map[string]string{"prompt": deckJSON})
		got := def.Execute(context.Background(), string(args))
		if !strings.Contains(got, "render timeout") {
			t.Errorf("result = %q", got)
		}
	})

	t.Run("missing payload", func(t *testing.T) {
		tool := NewDeckTool(&mockExporter{}, discardLogger())
		def := tool.Definition("thread-1")

		got := def.Execute(context.Background(), `{}`)
		if got != "No deck payload provided" {
			t.Errorf("result = %q", got)
		}
	})
}
