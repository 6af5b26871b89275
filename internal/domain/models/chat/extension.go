package chat

import (
	"encoding/json"
	"time"
)

// Extension is a stored user-defined tool bundle. Extensions are
// read-only inputs to the tool registry; their CRUD lives outside this
// service.
type Extension struct {
	ID             string              `json:"id" db:"id"`
	UserID         string              `json:"user_id" db:"user_id"`
	Name           string              `json:"name" db:"name"`
	Description    string              `json:"description" db:"description"`
	ExecutionSteps string              `json:"execution_steps" db:"execution_steps"`
	IsPublished    bool                `json:"is_published" db:"is_published"`
	Headers        []SecuredHeader     `json:"headers" db:"headers"`
	Functions      []ExtensionFunction `json:"functions" db:"functions"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
}

// SecuredHeader names a header whose value lives in the secret store.
// Only the key is ever logged or serialized outward.
type SecuredHeader struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// ExtensionFunction describes one callable tool within an extension:
// its JSON-schema parameters plus the HTTP endpoint template it maps to.
type ExtensionFunction struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
}
