package tools

import (
	"context"
	"log/slog"

	chatModels "parley/internal/domain/models/chat"
)

// Registry resolves which tools apply to a thread for one turn.
// Resolution never fails the pipeline: unresolvable dynamic tools are
// logged and dropped, and the registry performs no retries.
type Registry struct {
	image   *ImageTool
	deck    *DeckTool
	dynamic *DynamicTools
	logger  *slog.Logger
}

// NewRegistry creates a new tool Registry
func NewRegistry(image *ImageTool, deck *DeckTool, dynamic *DynamicTools, logger *slog.Logger) *Registry {
	return &Registry{
		image:   image,
		deck:    deck,
		dynamic: dynamic,
		logger:  logger,
	}
}

// Resolve builds the tool list for one turn:
//   - create_img is always present
//   - export_ppt when the thread carries the deck-export marker
//   - one tool per function of every attached dynamic extension
func (r *Registry) Resolve(ctx context.Context, thread *chatModels.Thread, hashedUserID, userMessage string) []Definition {
	defs := []Definition{r.image.Definition(thread.ID, userMessage)}

	if thread.HasExtension(PPTExtensionID) {
		defs = append(defs, r.deck.Definition(thread.ID))
	}

	dynamic, err := r.dynamic.Resolve(ctx, thread, hashedUserID)
	if err != nil {
		r.logger.Error("dynamic tool resolution failed", "thread_id", thread.ID, "error", err)
		return defs
	}

	return append(defs, dynamic...)
}
