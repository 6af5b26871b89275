package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"parley/internal/domain"
	"parley/internal/handler/sse"
	"parley/internal/httputil"
	"parley/internal/service/chat"
)

// maxInferenceBodyBytes bounds the multipart body (message JSON plus an
// optional base64 image attachment).
const maxInferenceBodyBytes = 20 << 20

// InferenceHandler handles the streaming chat endpoint
type InferenceHandler struct {
	inference *chat.InferenceService
	sseConfig *sse.Config
	logger    *slog.Logger
}

// NewInferenceHandler creates a new inference handler
func NewInferenceHandler(inference *chat.InferenceService, sseConfig *sse.Config, logger *slog.Logger) *InferenceHandler {
	return &InferenceHandler{
		inference: inference,
		sseConfig: sseConfig,
		logger:    logger,
	}
}

// inferenceContent is the JSON carried in the multipart "content" field.
type inferenceContent struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Chat runs one inference turn and streams the result
// POST /api/chat
//
// The body is multipart/form-data: a "content" field holding the turn
// JSON and an optional "image-base64" field with a data URL attachment.
// Transport-level failures (bad input, unknown thread) are reported as
// plain HTTP errors; once the event stream opens, every outcome arrives
// as a terminal SSE event instead.
func (h *InferenceHandler) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxInferenceBodyBytes)
	if err := r.ParseMultipartForm(maxInferenceBodyBytes); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}

	var content inferenceContent
	if err := json.Unmarshal([]byte(r.FormValue("content")), &content); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid content payload")
		return
	}

	input := chat.InferenceInput{
		ThreadID:     content.ID,
		UserID:       httputil.GetUserID(r),
		HashedUserID: httputil.GetHashedUserID(r),
		Message:      content.Message,
		ImageDataURL: r.FormValue("image-base64"),
	}

	turn, err := h.inference.PrepareTurn(r.Context(), input)
	if err != nil {
		// An unresolvable thread answers 401 with an empty body: the
		// caller cannot distinguish "not yours" from "does not exist".
		if errors.Is(err, domain.ErrNotFound) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handleError(w, err)
		return
	}

	writer, err := sse.NewEventWriter(w)
	if err != nil {
		h.logger.Error("SSE not supported by connection",
			slog.String("error", err.Error()))
		httputil.RespondError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	keepAlive.Start(sse.KeepAliveWriterFor(writer, input.ThreadID), h.logger)
	defer keepAlive.Stop()

	h.inference.StreamTurn(r.Context(), turn, writer)
}
