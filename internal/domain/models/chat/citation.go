package chat

// Citation is a retrieved passage plus its source attribution. Citations
// are created per-request from retrieval results and referenced by id
// from assistant content via inline markers; the search index remains
// the durable store, so they are never persisted here.
type Citation struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Name       string  `json:"name"`
	Passage    string  `json:"passage"`
	Score      float64 `json:"score"`
}
