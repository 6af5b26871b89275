// Package retrieval provides similarity search over the external
// document index. It is a best-effort collaborator: the chat pipeline
// logs its failures and continues unaugmented.
package retrieval

import (
	"context"
)

// Filter scopes a search to the caller's documents: chunks uploaded by
// the user to this thread, plus any persona-attached documents.
type Filter struct {
	HashedUserID string
	ThreadID     string
	PersonaID    string
}

// Result is one ranked passage from the index.
type Result struct {
	ID         string
	DocumentID string
	FileName   string
	Passage    string
	Score      float64
}

// Searcher is the retrieval capability consumed by the context
// assembler and the strategy selection.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int, f Filter) ([]Result, error)

	// HasPersonaDocuments reports whether the index holds any chunks
	// attached to the given persona.
	HasPersonaDocuments(ctx context.Context, personaID string) (bool, error)
}
