// Package chat implements the inference pipeline: strategy selection,
// context assembly, provider dispatch, and stream normalization, plus
// the thread lifecycle operations around it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"parley/internal/capabilities"
	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	chatRepo "parley/internal/domain/repositories/chat"
	"parley/internal/service/chat/providers"
	openaiprovider "parley/internal/service/chat/providers/openai"
	"parley/internal/service/chat/stream"
	"parley/internal/service/chat/tools"
)

// StreamSet holds one adapter per calling convention. The assistant
// adapter is concrete because the pipeline also needs its thread
// bootstrap step.
type StreamSet struct {
	Completions providers.Stream
	Responses   providers.Stream
	Assistant   *openaiprovider.AssistantStream
	External    providers.Stream
}

// InferenceService runs one chat turn end to end.
type InferenceService struct {
	threads    chatRepo.ThreadRepository
	messages   chatRepo.MessageRepository
	extensions chatRepo.ExtensionRepository
	registry   *capabilities.Registry
	assembler  *Assembler
	toolset    *tools.Registry
	streams    StreamSet
	logger     *slog.Logger
}

// NewInferenceService creates a new InferenceService
func NewInferenceService(
	threads chatRepo.ThreadRepository,
	messages chatRepo.MessageRepository,
	extensions chatRepo.ExtensionRepository,
	registry *capabilities.Registry,
	assembler *Assembler,
	toolset *tools.Registry,
	streams StreamSet,
	logger *slog.Logger,
) *InferenceService {
	return &InferenceService{
		threads:    threads,
		messages:   messages,
		extensions: extensions,
		registry:   registry,
		assembler:  assembler,
		toolset:    toolset,
		streams:    streams,
		logger:     logger,
	}
}

// InferenceInput is one user turn as received from the transport.
type InferenceInput struct {
	ThreadID     string
	UserID       string
	HashedUserID string
	Message      string

	// ImageDataURL is the optional image attachment as a data URL.
	ImageDataURL string
}

// Validate checks the input fields
func (in InferenceInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ThreadID, validation.Required),
		validation.Field(&in.UserID, validation.Required),
		validation.Field(&in.Message, validation.Required),
	)
}

// Turn is a prepared inference turn: everything resolved and assembled,
// ready to stream. Preparation is side-effect-free so transport errors
// can still be reported over plain HTTP before the event stream opens.
type Turn struct {
	input     InferenceInput
	thread    *chatModels.Thread
	caps      *capabilities.ModelCapabilities
	strategy  Strategy
	assembled *AssembledContext
	toolDefs  []tools.Definition
}

// Strategy exposes the routing decision, mainly for logging.
func (t *Turn) Strategy() Strategy { return t.strategy }

// Citations returns the passages the user message was grounded on.
func (t *Turn) Citations() []chatModels.Citation { return t.assembled.Citations }

// PrepareTurn loads the thread, classifies the turn, assembles the
// provider context, and resolves the tool list. It performs no writes.
func (s *InferenceService) PrepareTurn(ctx context.Context, in InferenceInput) (*Turn, error) {
	if err := in.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	thread, err := s.threads.GetThread(ctx, in.ThreadID, in.UserID)
	if err != nil {
		return nil, err
	}

	caps := s.registry.Lookup(thread.Model)

	// Persona documents put the turn in retrieval scope even when the
	// thread carries no documents of its own.
	documentsInScope := len(thread.DocumentIDs) > 0
	if !documentsInScope && thread.PersonaID != nil {
		documentsInScope = s.assembler.HasPersonaDocuments(ctx, *thread.PersonaID)
	}

	strategy := SelectStrategy(caps, in.ImageDataURL != "", documentsInScope)

	extensions, err := s.extensions.ListExtensions(ctx, thread.ExtensionIDs, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load extensions: %w", err)
	}

	assembled, err := s.assembler.Assemble(ctx, AssembleInput{
		Thread:       thread,
		UserMessage:  in.Message,
		ImageDataURL: in.ImageDataURL,
		Strategy:     strategy,
		Extensions:   extensions,
		HashedUserID: in.HashedUserID,
	})
	if err != nil {
		return nil, err
	}

	var toolDefs []tools.Definition
	if strategy == StrategyExtensions {
		toolDefs = s.toolset.Resolve(ctx, thread, in.HashedUserID, in.Message)
	}

	s.logger.Info("Prepared inference turn",
		slog.String("thread_id", thread.ID),
		slog.String("model", thread.Model),
		slog.String("strategy", string(strategy)),
		slog.Int("tools", len(toolDefs)),
		slog.Int("citations", len(assembled.Citations)))

	return &Turn{
		input:     in,
		thread:    thread,
		caps:      caps,
		strategy:  strategy,
		assembled: assembled,
		toolDefs:  toolDefs,
	}, nil
}

// StreamTurn persists the user message, runs the provider exchange, and
// finalizes through the normalizer. The user message is durable before
// the provider is contacted, so even a turn that fails immediately
// keeps what the user typed. Every outcome ends in exactly one terminal
// event on the sink.
func (s *InferenceService) StreamTurn(ctx context.Context, turn *Turn, sink stream.EventSink) {
	norm := stream.NewNormalizer(sink, s.messages, turn.thread.ID, turn.input.UserID, s.logger)

	if err := s.persistUserMessage(ctx, turn); err != nil {
		s.logger.Error("Failed to persist user message",
			slog.String("thread_id", turn.thread.ID),
			slog.String("error", err.Error()))
		if emitErr := norm.Error(context.WithoutCancel(ctx), "Failed to record your message. Please try again."); emitErr != nil {
			s.logger.Error("Failed to emit terminal event", slog.String("error", emitErr.Error()))
		}
		return
	}

	adapter, req, err := s.route(ctx, turn)
	if err != nil {
		s.finalizeFailure(ctx, norm, turn, err)
		return
	}

	// Citations go out before any content so the client can resolve the
	// inline markers the assistant text will carry.
	if citations := turn.Citations(); len(citations) > 0 {
		if err := sink.WriteEvent(chatModels.SSEEventCitations, chatModels.CitationsEvent{Citations: citations}); err != nil {
			s.logger.Warn("Failed to emit citations",
				slog.String("thread_id", turn.thread.ID),
				slog.String("error", err.Error()))
		}
	}

	if err := adapter.Run(ctx, req, norm); err != nil {
		s.finalizeFailure(ctx, norm, turn, err)
	}
}

// route picks the provider adapter and builds its request. The
// assistant path also bootstraps the provider-side thread and persists
// its id before any run starts.
func (s *InferenceService) route(ctx context.Context, turn *Turn) (providers.Stream, *providers.Request, error) {
	req := &providers.Request{
		Model:           turn.thread.Model,
		Messages:        turn.assembled.Messages,
		Tools:           turn.toolDefs,
		MaxOutputTokens: turn.caps.MaxOutput,
		ReasoningEffort: turn.caps.ReasoningEffort,
		UserText:        turn.input.Message,
	}
	// Legacy models reject sampling parameters.
	if !turn.caps.Legacy {
		temp := turn.thread.Temperature
		req.Temperature = &temp
	}

	switch turn.strategy {
	case StrategyAssistant:
		providerThreadID, err := s.ensureAssistantThread(ctx, turn.thread)
		if err != nil {
			return nil, nil, err
		}
		req.ProviderThreadID = providerThreadID
		return s.streams.Assistant, req, nil
	case StrategyExternalInference:
		return s.streams.External, req, nil
	default:
		if turn.caps.Wire == capabilities.WireResponses {
			return s.streams.Responses, req, nil
		}
		return s.streams.Completions, req, nil
	}
}

func (s *InferenceService) ensureAssistantThread(ctx context.Context, thread *chatModels.Thread) (string, error) {
	existing := ""
	if thread.AssistantThreadID != nil {
		existing = *thread.AssistantThreadID
	}

	providerThreadID, err := s.streams.Assistant.EnsureThread(ctx, existing)
	if err != nil {
		return "", err
	}

	if providerThreadID != existing {
		thread.AssistantThreadID = &providerThreadID
		if err := s.threads.UpdateThread(ctx, thread); err != nil {
			return "", fmt.Errorf("failed to persist assistant thread id: %w", err)
		}
	}
	return providerThreadID, nil
}

func (s *InferenceService) persistUserMessage(ctx context.Context, turn *Turn) error {
	msg := &chatModels.Message{
		ID:        uuid.NewString(),
		ThreadID:  turn.thread.ID,
		UserID:    turn.input.UserID,
		Role:      chatModels.RoleUser,
		Content:   turn.input.Message,
		CreatedAt: time.Now(),
	}
	if turn.input.ImageDataURL != "" {
		img := turn.input.ImageDataURL
		msg.MultiModalImage = &img
	}

	if err := s.messages.AppendMessage(ctx, msg); err != nil {
		return err
	}

	if err := s.threads.TouchLastMessage(ctx, turn.thread.ID, turn.input.UserID); err != nil {
		s.logger.Warn("Failed to bump thread activity",
			slog.String("thread_id", turn.thread.ID),
			slog.String("error", err.Error()))
	}
	return nil
}

// finalizeFailure maps a provider failure to its terminal event:
// cancellation becomes abort, anything else becomes error with the
// partial text persisted by the normalizer.
func (s *InferenceService) finalizeFailure(ctx context.Context, norm *stream.Normalizer, turn *Turn, err error) {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		s.logger.Info("Inference turn aborted by client",
			slog.String("thread_id", turn.thread.ID))
		if emitErr := norm.Abort("client disconnected"); emitErr != nil {
			s.logger.Debug("Abort event not delivered", slog.String("error", emitErr.Error()))
		}
		return
	}

	s.logger.Error("Inference turn failed",
		slog.String("thread_id", turn.thread.ID),
		slog.String("strategy", string(turn.strategy)),
		slog.String("error", err.Error()))

	upstream := fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	if emitErr := norm.Error(context.WithoutCancel(ctx), upstream.Error()); emitErr != nil {
		s.logger.Error("Failed to emit terminal event", slog.String("error", emitErr.Error()))
	}
}
