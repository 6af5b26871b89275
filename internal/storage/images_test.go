package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *LocalImageStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLocalImageStore(t.TempDir(), "http://localhost:8080/", logger)
}

func TestLocalImageStore_UploadAndURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	data := []byte{0x89, 'P', 'N', 'G'}
	if err := store.Upload(ctx, "thread-1", "img.png", data); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	path, err := store.Path("thread-1", "img.png")
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading stored image: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("stored bytes = %v", got)
	}

	url, err := store.URL(ctx, "thread-1", "img.png")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	// Trailing slash on the base URL must not double up.
	if url != "http://localhost:8080/api/images/thread-1/img.png" {
		t.Errorf("url = %q", url)
	}
}

func TestLocalImageStore_RejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	bad := []struct {
		threadID string
		name     string
	}{
		{"..", "img.png"},
		{"thread-1", ".."},
		{"thread-1", "../../etc/passwd"},
		{"a/b", "img.png"},
		{`a\b`, "img.png"},
		{"", "img.png"},
		{"thread-1", ""},
		{"thread-1", "."},
	}

	for _, tc := range bad {
		if _, err := store.Path(tc.threadID, tc.name); err == nil {
			t.Errorf("Path(%q, %q) accepted an unsafe segment", tc.threadID, tc.name)
		}
		if _, err := store.URL(context.Background(), tc.threadID, tc.name); err == nil {
			t.Errorf("URL(%q, %q) accepted an unsafe segment", tc.threadID, tc.name)
		}
	}
}

func TestLocalImageStore_PathStaysUnderRoot(t *testing.T) {
	store := newTestStore(t)

	path, err := store.Path("thread-1", "img.png")
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if filepath.Base(path) != "img.png" {
		t.Errorf("path = %q", path)
	}
	if !filepath.IsAbs(path) && filepath.VolumeName(path) == "" {
		// Relative roots are fine, but the path must contain the
		// thread directory.
		if filepath.Dir(path) == "." {
			t.Errorf("path %q lost its thread directory", path)
		}
	}
}
