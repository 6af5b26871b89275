// Package storage holds the blob collaborators for generated
// artifacts. The local store keeps generated images on disk under a
// per-thread directory and serves them through the API.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalImageStore stores generated images on the local filesystem.
type LocalImageStore struct {
	root    string
	baseURL string
	logger  *slog.Logger
}

// NewLocalImageStore creates a new LocalImageStore rooted at dir.
// Returned URLs are anchored at baseURL.
func NewLocalImageStore(dir, baseURL string, logger *slog.Logger) *LocalImageStore {
	return &LocalImageStore{
		root:    dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// Upload writes one image under the thread's directory.
func (s *LocalImageStore) Upload(ctx context.Context, threadID, name string, data []byte) error {
	path, err := s.Path(threadID, name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	s.logger.Debug("Stored generated image",
		slog.String("thread_id", threadID),
		slog.String("name", name),
		slog.Int("bytes", len(data)))
	return nil
}

// URL resolves the public URL for a stored image.
func (s *LocalImageStore) URL(ctx context.Context, threadID, name string) (string, error) {
	if err := validateSegment(threadID); err != nil {
		return "", err
	}
	if err := validateSegment(name); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/images/%s/%s", s.baseURL, threadID, name), nil
}

// Path resolves the on-disk location for a stored image, rejecting
// names that would escape the store root.
func (s *LocalImageStore) Path(threadID, name string) (string, error) {
	if err := validateSegment(threadID); err != nil {
		return "", err
	}
	if err := validateSegment(name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, threadID, name), nil
}

func validateSegment(segment string) error {
	if segment == "" || segment == "." || segment == ".." ||
		strings.ContainsAny(segment, `/\`) {
		return fmt.Errorf("invalid path segment %q", segment)
	}
	return nil
}
