package handler

import (
	"log/slog"
	"net/http"
	"os"

	"parley/internal/httputil"
	"parley/internal/storage"
)

// ImagesHandler serves generated images back to the chat UI
type ImagesHandler struct {
	store  *storage.LocalImageStore
	logger *slog.Logger
}

// NewImagesHandler creates a new images handler
func NewImagesHandler(store *storage.LocalImageStore, logger *slog.Logger) *ImagesHandler {
	return &ImagesHandler{
		store:  store,
		logger: logger,
	}
}

// ServeImage streams one stored image
// GET /api/images/{threadID}/{name}
func (h *ImagesHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	threadID, ok := PathParam(w, r, "threadID", "Thread ID")
	if !ok {
		return
	}
	name, ok := PathParam(w, r, "name", "Image name")
	if !ok {
		return
	}

	path, err := h.store.Path(threadID, name)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid image path")
		return
	}

	if _, err := os.Stat(path); err != nil {
		httputil.RespondError(w, http.StatusNotFound, "Image not found")
		return
	}

	http.ServeFile(w, r, path)
}
