package chat

import (
	"context"

	"parley/internal/domain/models/chat"
)

// ThreadRepository defines the interface for thread data access
type ThreadRepository interface {
	// CreateThread creates a new conversation thread
	CreateThread(ctx context.Context, thread *chat.Thread) error

	// GetThread retrieves a thread by ID (scoped to user)
	// Returns domain.ErrNotFound if not found or soft-deleted
	GetThread(ctx context.Context, threadID, userID string) (*chat.Thread, error)

	// ListThreads retrieves all live threads for a user, newest activity first
	// Returns empty slice if none found
	ListThreads(ctx context.Context, userID string) ([]chat.Thread, error)

	// UpdateThread updates a thread's mutable fields (name, bookmarked,
	// persona/model settings, extension and document attachments,
	// assistant_thread_id)
	// Returns domain.ErrNotFound if not found
	UpdateThread(ctx context.Context, thread *chat.Thread) error

	// TouchLastMessage bumps last_message_at to now
	TouchLastMessage(ctx context.Context, threadID, userID string) error

	// DeleteThread soft-deletes a thread and returns the deleted thread
	// Returns domain.ErrNotFound if not found or already deleted
	DeleteThread(ctx context.Context, threadID, userID string) (*chat.Thread, error)
}
