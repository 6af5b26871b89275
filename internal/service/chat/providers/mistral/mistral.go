// Package mistral adapts the Mistral chat endpoint to the provider
// Stream contract. Mistral exposes an OpenAI-compatible completions
// surface, so the client is a go-openai client pointed at the Mistral
// base URL. Tool calling is not offered on this path.
package mistral

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"parley/internal/service/chat/providers"
)

// NewClient builds a go-openai client against the Mistral API.
func NewClient(apiKey, baseURL string) *goopenai.Client {
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return goopenai.NewClientWithConfig(cfg)
}

// Stream streams one chat completion from Mistral.
type Stream struct {
	client *goopenai.Client
	logger *slog.Logger
}

// NewStream creates a new Stream
func NewStream(client *goopenai.Client, logger *slog.Logger) *Stream {
	return &Stream{
		client: client,
		logger: logger,
	}
}

// Run implements providers.Stream.
func (s *Stream) Run(ctx context.Context, req *providers.Request, h providers.Handler) error {
	apiReq := goopenai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   true,
	}
	if req.Temperature != nil {
		apiReq.Temperature = *req.Temperature
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to open completion stream: %w", err)
	}
	defer stream.Close()

	var cumulative strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream receive failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			cumulative.WriteString(delta)
			if err := h.OnDelta(ctx, cumulative.String()); err != nil {
				return err
			}
		}
	}

	return h.OnDone(ctx, cumulative.String())
}
