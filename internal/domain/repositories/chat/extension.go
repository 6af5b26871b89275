package chat

import (
	"context"

	"parley/internal/domain/models/chat"
)

// ExtensionRepository reads stored user-defined extensions. Extension
// CRUD lives outside this service; the registry only consumes them.
type ExtensionRepository interface {
	// GetExtension retrieves one extension visible to the user
	// (owned or published)
	// Returns domain.ErrNotFound if not found
	GetExtension(ctx context.Context, extensionID, userID string) (*chat.Extension, error)

	// ListExtensions retrieves the extensions for a set of ids,
	// preserving input order and skipping ids the user cannot see
	ListExtensions(ctx context.Context, extensionIDs []string, userID string) ([]chat.Extension, error)

	// SecureHeaderValue resolves a secured header's secret value by id.
	// Implementations must never log the returned value.
	SecureHeaderValue(ctx context.Context, headerID string) (string, error)
}
