package config

import "time"

const (
	// MaxThreadNameLength is the maximum length for thread names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxThreadNameLength = 255

	// HistoryWindow is the number of most recent persisted messages
	// assembled into the prompt for each turn.
	HistoryWindow = 30

	// RetrievalTopK is the number of passages requested from the
	// search index for retrieval-augmented turns.
	RetrievalTopK = 10

	// MaxResponseTokens caps output on wire shapes that accept an
	// explicit output-token limit.
	MaxResponseTokens = 4096

	// AssistantPollInterval is the delay between run-status polls of
	// the assistant strategy.
	AssistantPollInterval = 700 * time.Millisecond

	// AssistantPollTimeout bounds the whole run-poll loop. Runs still
	// in flight at the deadline are reported as stream errors rather
	// than polled forever.
	AssistantPollTimeout = 2 * time.Minute

	// AssistantPollMaxIterations is a secondary guard on the poll loop.
	AssistantPollMaxIterations = 600

	// ToolHTTPTimeout bounds a single dynamic tool HTTP call.
	ToolHTTPTimeout = 60 * time.Second

	// DefaultTemperature is the sampling temperature for new threads.
	DefaultTemperature float32 = 0.7

	// MaxMessagesPerThreadFetch caps a full-history read for the
	// messages listing endpoint.
	MaxMessagesPerThreadFetch = 500
)
