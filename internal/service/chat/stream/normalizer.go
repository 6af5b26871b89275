// Package stream normalizes provider stream activity into the SSE event
// protocol and the persisted history log. Every strategy funnels through
// the same Normalizer, so clients see one event vocabulary regardless of
// which wire produced the tokens.
package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	chatModels "parley/internal/domain/models/chat"
	chatRepo "parley/internal/domain/repositories/chat"
	"parley/internal/service/chat/providers"
)

// EventSink receives the normalized SSE frames. *sse.EventWriter
// satisfies it; tests substitute an in-memory recorder.
type EventSink interface {
	WriteEvent(eventType string, data interface{}) error
}

// Normalizer implements providers.Handler for one inference turn. It
// relays cumulative content, persists tool activity and the final
// assistant message, and guarantees exactly one terminal event.
//
// Terminal rules: success persists the full text (empty included) and
// emits finalContent; provider failure persists whatever partial text
// streamed (empty included) and emits error; client abort persists
// nothing and emits abort. After the first terminal event every other entry point is a
// no-op.
type Normalizer struct {
	sink     EventSink
	messages chatRepo.MessageRepository
	threadID string
	userID   string
	logger   *slog.Logger

	mu         sync.Mutex
	cumulative string
	finalized  bool
}

// NewNormalizer creates a new Normalizer for a single turn
func NewNormalizer(sink EventSink, messages chatRepo.MessageRepository, threadID, userID string, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		sink:     sink,
		messages: messages,
		threadID: threadID,
		userID:   userID,
		logger:   logger,
	}
}

// OnDelta implements providers.Handler.
func (n *Normalizer) OnDelta(ctx context.Context, cumulative string) error {
	n.mu.Lock()
	if n.finalized {
		n.mu.Unlock()
		return nil
	}
	n.cumulative = cumulative
	n.mu.Unlock()

	return n.sink.WriteEvent(chatModels.SSEEventContent, chatModels.ContentEvent{Content: cumulative})
}

// OnToolCall persists the invocation before the tool runs, so a crash
// mid-execution still leaves the call on record.
func (n *Normalizer) OnToolCall(ctx context.Context, call providers.ToolCall) error {
	if n.isFinalized() {
		return nil
	}

	if err := n.persist(ctx, chatModels.RoleFunction, call.Name, call.Arguments); err != nil {
		return err
	}
	return n.sink.WriteEvent(chatModels.SSEEventFunctionCall, chatModels.FunctionCallEvent{
		Name:      call.Name,
		Arguments: call.Arguments,
	})
}

// OnToolResult persists the outcome before the model turn resumes.
func (n *Normalizer) OnToolResult(ctx context.Context, res providers.ToolResult) error {
	if n.isFinalized() {
		return nil
	}

	if err := n.persist(ctx, chatModels.RoleFunction, res.Name, res.Result); err != nil {
		return err
	}
	return n.sink.WriteEvent(chatModels.SSEEventFunctionCallResult, chatModels.FunctionCallResultEvent{
		Name:   res.Name,
		Result: res.Result,
	})
}

// OnDone finalizes the turn on success.
func (n *Normalizer) OnDone(ctx context.Context, final string) error {
	if !n.claimFinalization() {
		return nil
	}

	if err := n.persist(ctx, chatModels.RoleAssistant, "", final); err != nil {
		return err
	}
	return n.sink.WriteEvent(chatModels.SSEEventFinalContent, chatModels.FinalContentEvent{Content: final})
}

// Abort finalizes the turn after a client cancellation. The partial
// text is discarded: an aborted turn leaves no assistant message.
func (n *Normalizer) Abort(reason string) error {
	if !n.claimFinalization() {
		return nil
	}

	return n.sink.WriteEvent(chatModels.SSEEventAbort, chatModels.AbortEvent{Reason: reason})
}

// Error finalizes the turn after a provider failure. Whatever text had
// accumulated is persisted, empty included, so the history matches what
// the client rendered before the failure and the turn always leaves an
// assistant message behind.
func (n *Normalizer) Error(ctx context.Context, message string) error {
	n.mu.Lock()
	if n.finalized {
		n.mu.Unlock()
		return nil
	}
	n.finalized = true
	partial := n.cumulative
	n.mu.Unlock()

	if err := n.persist(ctx, chatModels.RoleAssistant, "", partial); err != nil {
		n.logger.Error("Failed to persist partial response",
			slog.String("thread_id", n.threadID),
			slog.String("error", err.Error()))
	}

	return n.sink.WriteEvent(chatModels.SSEEventError, chatModels.ErrorEvent{Message: message})
}

// Finalized reports whether a terminal event has been emitted.
func (n *Normalizer) Finalized() bool {
	return n.isFinalized()
}

func (n *Normalizer) isFinalized() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finalized
}

// claimFinalization atomically wins the right to emit the terminal
// event. Only the first caller gets true.
func (n *Normalizer) claimFinalization() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.finalized {
		return false
	}
	n.finalized = true
	return true
}

func (n *Normalizer) persist(ctx context.Context, role chatModels.Role, name, content string) error {
	return n.messages.AppendMessage(ctx, &chatModels.Message{
		ID:        uuid.NewString(),
		ThreadID:  n.threadID,
		UserID:    n.userID,
		Name:      name,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
}
