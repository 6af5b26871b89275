package chat

import (
	"time"
)

// Thread represents a persisted conversation container with its
// routing configuration (model, persona, extensions, documents).
type Thread struct {
	ID             string   `json:"id" db:"id"`
	UserID         string   `json:"user_id" db:"user_id"`
	Name           string   `json:"name" db:"name"`
	PersonaID      *string  `json:"persona_id,omitempty" db:"persona_id"`
	Model          string   `json:"model" db:"model"`
	PersonaMessage string   `json:"persona_message" db:"persona_message"`
	Temperature    float32  `json:"temperature" db:"temperature"`
	ExtensionIDs   []string `json:"extension_ids" db:"extension_ids"`
	DocumentIDs    []string `json:"document_ids" db:"document_ids"`
	Bookmarked     bool     `json:"bookmarked" db:"bookmarked"`
	IsDeleted      bool     `json:"is_deleted" db:"is_deleted"`

	// AssistantThreadID is the provider-side thread id, set lazily the
	// first time the assistant strategy runs for this thread.
	AssistantThreadID *string `json:"assistant_thread_id,omitempty" db:"assistant_thread_id"`

	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	LastMessageAt time.Time `json:"last_message_at" db:"last_message_at"`
}

// HasExtension reports whether the given extension id is attached.
func (t *Thread) HasExtension(id string) bool {
	for _, e := range t.ExtensionIDs {
		if e == id {
			return true
		}
	}
	return false
}
