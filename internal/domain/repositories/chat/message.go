package chat

import (
	"context"

	"parley/internal/domain/models/chat"
)

// MessageRepository defines the interface for message data access.
// All writes are single-row upserts keyed by message id; there is no
// multi-row transaction requirement, and a crash mid-stream leaves the
// log in a valid, if incomplete, state.
type MessageRepository interface {
	// AppendMessage upserts one message into the thread's history log
	AppendMessage(ctx context.Context, msg *chat.Message) error

	// FindTopByThread retrieves the most recent live messages for a
	// thread, newest first. Callers reverse for chronological order.
	FindTopByThread(ctx context.Context, threadID, userID string, limit int) ([]chat.Message, error)

	// SoftDeleteMessage marks a single message deleted
	// Returns domain.ErrNotFound if not found or already deleted
	SoftDeleteMessage(ctx context.Context, messageID, userID string) error

	// SoftDeleteByThread marks every message in a thread deleted.
	// Used when the thread itself is deleted.
	SoftDeleteByThread(ctx context.Context, threadID, userID string) error
}
