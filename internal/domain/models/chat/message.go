package chat

import (
	"time"
)

// Role is the author role of a persisted message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Message is one entry in a thread's append-only history log.
// Writes are single-row upserts keyed by ID, so each persistence call
// is independently atomic.
type Message struct {
	ID       string `json:"id" db:"id"`
	ThreadID string `json:"thread_id" db:"thread_id"`
	UserID   string `json:"user_id" db:"user_id"`
	Name     string `json:"name" db:"name"`
	Role     Role   `json:"role" db:"role"`
	Content  string `json:"content" db:"content"`

	// MultiModalImage holds the attached image reference (data URL or
	// blob path) for multimodal user turns.
	MultiModalImage *string `json:"multimodal_image,omitempty" db:"multimodal_image"`

	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
