package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"parley/internal/config"
	"parley/internal/service/chat/providers"
)

// AssistantStream drives the assistant run/poll flow. The provider owns
// the conversation state, so instead of replaying an assembled message
// list we append the raw user text to a provider-side thread, start a
// run against a configured assistant, and poll it to completion.
type AssistantStream struct {
	client      *goopenai.Client
	assistantID string
	logger      *slog.Logger
}

// NewAssistantStream creates a new AssistantStream
func NewAssistantStream(client *goopenai.Client, assistantID string, logger *slog.Logger) *AssistantStream {
	return &AssistantStream{
		client:      client,
		assistantID: assistantID,
		logger:      logger,
	}
}

// EnsureThread returns the provider-side thread id, creating one when
// the local thread has none yet. The caller persists the returned id
// before starting the run.
func (s *AssistantStream) EnsureThread(ctx context.Context, providerThreadID string) (string, error) {
	if providerThreadID != "" {
		return providerThreadID, nil
	}

	thread, err := s.client.CreateThread(ctx, goopenai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("failed to create assistant thread: %w", err)
	}
	return thread.ID, nil
}

// Run implements providers.Stream.
func (s *AssistantStream) Run(ctx context.Context, req *providers.Request, h providers.Handler) error {
	if req.ProviderThreadID == "" {
		return fmt.Errorf("assistant run requires a provider thread id")
	}

	_, err := s.client.CreateMessage(ctx, req.ProviderThreadID, goopenai.MessageRequest{
		Role:    string(goopenai.ThreadMessageRoleUser),
		Content: req.UserText,
	})
	if err != nil {
		return fmt.Errorf("failed to append assistant message: %w", err)
	}

	run, err := s.client.CreateRun(ctx, req.ProviderThreadID, goopenai.RunRequest{
		AssistantID: s.assistantID,
	})
	if err != nil {
		return fmt.Errorf("failed to create assistant run: %w", err)
	}

	run, err = s.pollRun(ctx, req.ProviderThreadID, run.ID)
	if err != nil {
		return err
	}
	if run.Status != goopenai.RunStatusCompleted {
		return fmt.Errorf("assistant run ended with status %s", run.Status)
	}

	text, err := s.latestAssistantText(ctx, req.ProviderThreadID, run.ID)
	if err != nil {
		return err
	}

	// The poll flow yields the answer in one piece.
	if err := h.OnDelta(ctx, text); err != nil {
		return err
	}
	return h.OnDone(ctx, text)
}

// pollRun waits for the run to reach a terminal status, bounded by the
// configured timeout and iteration cap so a wedged run can never pin
// the request goroutine.
func (s *AssistantStream) pollRun(ctx context.Context, threadID, runID string) (goopenai.Run, error) {
	deadline := time.Now().Add(config.AssistantPollTimeout)
	ticker := time.NewTicker(config.AssistantPollInterval)
	defer ticker.Stop()

	for i := 0; i < config.AssistantPollMaxIterations; i++ {
		run, err := s.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			if ctx.Err() != nil {
				return goopenai.Run{}, ctx.Err()
			}
			return goopenai.Run{}, fmt.Errorf("failed to poll assistant run: %w", err)
		}

		switch run.Status {
		case goopenai.RunStatusCompleted,
			goopenai.RunStatusFailed,
			goopenai.RunStatusCancelled,
			goopenai.RunStatusExpired,
			goopenai.RunStatusRequiresAction:
			return run, nil
		}

		if time.Now().After(deadline) {
			return run, fmt.Errorf("assistant run polling timed out after %s", config.AssistantPollTimeout)
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-ticker.C:
		}
	}

	return goopenai.Run{}, fmt.Errorf("assistant run polling exceeded %d attempts", config.AssistantPollMaxIterations)
}

// latestAssistantText fetches the newest assistant message produced by
// the run and joins its text parts.
func (s *AssistantStream) latestAssistantText(ctx context.Context, threadID, runID string) (string, error) {
	limit := 1
	order := "desc"
	msgs, err := s.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, &runID)
	if err != nil {
		return "", fmt.Errorf("failed to list assistant messages: %w", err)
	}
	if len(msgs.Messages) == 0 {
		s.logger.Warn("Assistant run completed without a reply",
			slog.String("run_id", runID))
		return "", nil
	}

	var parts []string
	for _, content := range msgs.Messages[0].Content {
		if content.Text != nil {
			parts = append(parts, content.Text.Value)
		}
	}
	return strings.Join(parts, "\n"), nil
}
