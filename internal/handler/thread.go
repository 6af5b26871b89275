package handler

import (
	"log/slog"
	"net/http"

	"parley/internal/httputil"
	chatsvc "parley/internal/service/chat"
)

// ThreadHandler handles thread lifecycle HTTP requests
// Follows Clean Architecture: handlers only communicate with services, never repositories
type ThreadHandler struct {
	threads *chatsvc.ThreadService
	logger  *slog.Logger
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(threads *chatsvc.ThreadService, logger *slog.Logger) *ThreadHandler {
	return &ThreadHandler{
		threads: threads,
		logger:  logger,
	}
}

type createThreadRequest struct {
	Name           string   `json:"name"`
	Model          string   `json:"model"`
	PersonaID      *string  `json:"persona_id"`
	PersonaMessage string   `json:"persona_message"`
	Temperature    *float32 `json:"temperature"`
	ExtensionIDs   []string `json:"extension_ids"`
	DocumentIDs    []string `json:"document_ids"`
}

type updateThreadRequest struct {
	Name           *string                 `json:"name"`
	Bookmarked     *bool                   `json:"bookmarked"`
	Model          *string                 `json:"model"`
	PersonaMessage *string                 `json:"persona_message"`
	Temperature    *float32                `json:"temperature"`
	ExtensionIDs   *[]string               `json:"extension_ids"`
	DocumentIDs    *[]string               `json:"document_ids"`
	PersonaID      httputil.OptionalString `json:"persona_id"`
}

// CreateThread creates a new conversation thread
// POST /api/threads
func (h *ThreadHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req createThreadRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	thread, err := h.threads.CreateThread(r.Context(), chatsvc.CreateThreadInput{
		UserID:         userID,
		Name:           req.Name,
		Model:          req.Model,
		PersonaID:      req.PersonaID,
		PersonaMessage: req.PersonaMessage,
		Temperature:    req.Temperature,
		ExtensionIDs:   req.ExtensionIDs,
		DocumentIDs:    req.DocumentIDs,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, thread)
}

// ListThreads retrieves all live threads for the current user
// GET /api/threads
func (h *ThreadHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	threads, err := h.threads.ListThreads(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, threads)
}

// GetThread retrieves a single thread by ID
// GET /api/threads/{id}
func (h *ThreadHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	threadID, ok := PathParam(w, r, "id", "Thread ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	thread, err := h.threads.GetThread(r.Context(), threadID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, thread)
}

// UpdateThread applies a partial update to a thread's settings
// PATCH /api/threads/{id}
func (h *ThreadHandler) UpdateThread(w http.ResponseWriter, r *http.Request) {
	threadID, ok := PathParam(w, r, "id", "Thread ID")
	if !ok {
		return
	}

	var req updateThreadRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	input := chatsvc.UpdateThreadInput{
		ThreadID:       threadID,
		UserID:         httputil.GetUserID(r),
		Name:           req.Name,
		Bookmarked:     req.Bookmarked,
		Model:          req.Model,
		PersonaMessage: req.PersonaMessage,
		Temperature:    req.Temperature,
		ExtensionIDs:   req.ExtensionIDs,
		DocumentIDs:    req.DocumentIDs,
	}
	if req.PersonaID.Present {
		input.SetPersonaID = true
		input.PersonaID = req.PersonaID.Value
	}

	thread, err := h.threads.UpdateThread(r.Context(), input)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, thread)
}

// DeleteThread soft-deletes a thread and its messages
// DELETE /api/threads/{id}
func (h *ThreadHandler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	threadID, ok := PathParam(w, r, "id", "Thread ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	thread, err := h.threads.DeleteThread(r.Context(), threadID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("Thread deleted via API",
		slog.String("thread_id", threadID),
		slog.String("user_id", userID))
	httputil.RespondJSON(w, http.StatusOK, thread)
}

// DeleteMessage soft-deletes a single message in a thread
// DELETE /api/threads/{threadID}/messages/{id}
func (h *ThreadHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	threadID, ok := PathParam(w, r, "threadID", "Thread ID")
	if !ok {
		return
	}
	messageID, ok := PathParam(w, r, "id", "Message ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	if err := h.threads.DeleteMessage(r.Context(), threadID, messageID, userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMessages retrieves a thread's messages in chronological order
// GET /api/threads/{id}/messages
func (h *ThreadHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	threadID, ok := PathParam(w, r, "id", "Thread ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	messages, err := h.threads.ListMessages(r.Context(), threadID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, messages)
}
