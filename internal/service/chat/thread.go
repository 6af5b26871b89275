package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"parley/internal/capabilities"
	"parley/internal/config"
	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	"parley/internal/domain/repositories"
	chatRepo "parley/internal/domain/repositories/chat"
)

// ThreadService handles the thread lifecycle around the inference
// pipeline: creation, listing, settings updates, and deletion.
type ThreadService struct {
	threads  chatRepo.ThreadRepository
	messages chatRepo.MessageRepository
	registry *capabilities.Registry
	txMgr    repositories.TransactionManager
	logger   *slog.Logger
}

// NewThreadService creates a new ThreadService
func NewThreadService(
	threads chatRepo.ThreadRepository,
	messages chatRepo.MessageRepository,
	registry *capabilities.Registry,
	txMgr repositories.TransactionManager,
	logger *slog.Logger,
) *ThreadService {
	return &ThreadService{
		threads:  threads,
		messages: messages,
		registry: registry,
		txMgr:    txMgr,
		logger:   logger,
	}
}

// CreateThreadInput carries the fields for a new thread. Zero values
// fall back to defaults.
type CreateThreadInput struct {
	UserID         string
	Name           string
	Model          string
	PersonaID      *string
	PersonaMessage string
	Temperature    *float32
	ExtensionIDs   []string
	DocumentIDs    []string
}

// Validate checks the input fields
func (in CreateThreadInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.UserID, validation.Required),
		validation.Field(&in.Name, validation.Length(0, config.MaxThreadNameLength)),
	)
}

// CreateThread creates a thread with defaults applied: an unnamed
// thread becomes "New Chat" and an unset model falls back to the first
// configured model.
func (s *ThreadService) CreateThread(ctx context.Context, in CreateThreadInput) (*chatModels.Thread, error) {
	if err := in.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	name := in.Name
	if name == "" {
		name = "New Chat"
	}

	model := in.Model
	if model == "" {
		if models := s.registry.ListModels(); len(models) > 0 {
			model = models[0].ID
		}
	}

	temperature := config.DefaultTemperature
	if in.Temperature != nil {
		temperature = *in.Temperature
	}

	now := time.Now()
	thread := &chatModels.Thread{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		Name:           name,
		PersonaID:      in.PersonaID,
		Model:          model,
		PersonaMessage: in.PersonaMessage,
		Temperature:    temperature,
		ExtensionIDs:   in.ExtensionIDs,
		DocumentIDs:    in.DocumentIDs,
		CreatedAt:      now,
		LastMessageAt:  now,
	}

	if err := s.threads.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	s.logger.Info("Created thread",
		slog.String("thread_id", thread.ID),
		slog.String("model", thread.Model))
	return thread, nil
}

// ListThreads returns the user's live threads, bookmarked first, then
// newest activity first.
func (s *ThreadService) ListThreads(ctx context.Context, userID string) ([]chatModels.Thread, error) {
	return s.threads.ListThreads(ctx, userID)
}

// GetThread returns one live thread scoped to the user.
func (s *ThreadService) GetThread(ctx context.Context, threadID, userID string) (*chatModels.Thread, error) {
	return s.threads.GetThread(ctx, threadID, userID)
}

// UpdateThreadInput holds an update. Nil pointers leave the field
// unchanged; SetPersonaID distinguishes clearing the persona from not
// touching it.
type UpdateThreadInput struct {
	ThreadID string
	UserID   string

	Name           *string
	Bookmarked     *bool
	Model          *string
	PersonaMessage *string
	Temperature    *float32
	ExtensionIDs   *[]string
	DocumentIDs    *[]string

	PersonaID    *string
	SetPersonaID bool
}

// Validate checks the input fields
func (in UpdateThreadInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ThreadID, validation.Required),
		validation.Field(&in.UserID, validation.Required),
		validation.Field(&in.Name, validation.By(func(value interface{}) error {
			if in.Name == nil {
				return nil
			}
			return validation.Validate(*in.Name,
				validation.Required,
				validation.Length(1, config.MaxThreadNameLength))
		})),
	)
}

// UpdateThread applies a partial update to a thread's settings.
func (s *ThreadService) UpdateThread(ctx context.Context, in UpdateThreadInput) (*chatModels.Thread, error) {
	if err := in.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	thread, err := s.threads.GetThread(ctx, in.ThreadID, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		thread.Name = *in.Name
	}
	if in.Bookmarked != nil {
		thread.Bookmarked = *in.Bookmarked
	}
	if in.Model != nil {
		thread.Model = *in.Model
	}
	if in.PersonaMessage != nil {
		thread.PersonaMessage = *in.PersonaMessage
	}
	if in.Temperature != nil {
		thread.Temperature = *in.Temperature
	}
	if in.ExtensionIDs != nil {
		thread.ExtensionIDs = *in.ExtensionIDs
	}
	if in.DocumentIDs != nil {
		thread.DocumentIDs = *in.DocumentIDs
	}
	if in.SetPersonaID {
		thread.PersonaID = in.PersonaID
	}

	if err := s.threads.UpdateThread(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// DeleteThread soft-deletes a thread and all its messages in one
// transaction, so a half-deleted thread can never be observed.
func (s *ThreadService) DeleteThread(ctx context.Context, threadID, userID string) (*chatModels.Thread, error) {
	var deleted *chatModels.Thread

	err := s.txMgr.ExecTx(ctx, func(txCtx context.Context) error {
		thread, err := s.threads.DeleteThread(txCtx, threadID, userID)
		if err != nil {
			return err
		}
		if err := s.messages.SoftDeleteByThread(txCtx, threadID, userID); err != nil {
			return err
		}
		deleted = thread
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Deleted thread", slog.String("thread_id", threadID))
	return deleted, nil
}

// DeleteMessage soft-deletes one message in a thread.
func (s *ThreadService) DeleteMessage(ctx context.Context, threadID, messageID, userID string) error {
	if _, err := s.threads.GetThread(ctx, threadID, userID); err != nil {
		return err
	}
	return s.messages.SoftDeleteMessage(ctx, messageID, userID)
}

// ListMessages returns a thread's live messages in chronological order.
func (s *ThreadService) ListMessages(ctx context.Context, threadID, userID string) ([]chatModels.Message, error) {
	// Verify visibility before reading history.
	if _, err := s.threads.GetThread(ctx, threadID, userID); err != nil {
		return nil, err
	}

	recent, err := s.messages.FindTopByThread(ctx, threadID, userID, config.MaxMessagesPerThreadFetch)
	if err != nil {
		return nil, err
	}

	// Repository order is newest first.
	out := make([]chatModels.Message, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		out = append(out, recent[i])
	}
	return out, nil
}
