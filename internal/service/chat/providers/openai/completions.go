package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"parley/internal/service/chat/providers"
	"parley/internal/service/chat/tools"
)

// maxToolRounds caps the number of model invocations per turn, so a
// model that answers every resumption with another tool call cannot
// loop indefinitely.
const maxToolRounds = 10

// CompletionsStream drives the chat completions wire. When the model
// requests tool calls, it executes them and re-invokes the model with
// the results until the turn finishes with plain text.
type CompletionsStream struct {
	client *goopenai.Client
	logger *slog.Logger
}

// NewCompletionsStream creates a new CompletionsStream
func NewCompletionsStream(client *goopenai.Client, logger *slog.Logger) *CompletionsStream {
	return &CompletionsStream{
		client: client,
		logger: logger,
	}
}

// Run implements providers.Stream.
func (s *CompletionsStream) Run(ctx context.Context, req *providers.Request, h providers.Handler) error {
	messages := append([]goopenai.ChatCompletionMessage(nil), req.Messages...)

	byName := make(map[string]tools.Definition, len(req.Tools))
	apiTools := make([]goopenai.Tool, 0, len(req.Tools))
	for _, t := range req.Tools {
		byName[t.Name] = t
		apiTools = append(apiTools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	// Cumulative text spans tool rounds: the client sees one growing
	// assistant message for the whole turn.
	var cumulative strings.Builder

	for round := 0; ; round++ {
		if round >= maxToolRounds {
			return fmt.Errorf("tool call limit reached after %d rounds", maxToolRounds)
		}

		apiReq := goopenai.ChatCompletionRequest{
			Model:    req.Model,
			Messages: messages,
			Stream:   true,
		}
		if req.Temperature != nil {
			apiReq.Temperature = *req.Temperature
		}
		if len(apiTools) > 0 {
			apiReq.Tools = apiTools
		}

		stream, err := s.client.CreateChatCompletionStream(ctx, apiReq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to open completion stream: %w", err)
		}

		calls, finish, err := s.consume(ctx, stream, &cumulative, h)
		stream.Close()
		if err != nil {
			return err
		}

		if finish != goopenai.FinishReasonToolCalls || len(calls) == 0 {
			return h.OnDone(ctx, cumulative.String())
		}

		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:      goopenai.ChatMessageRoleAssistant,
			ToolCalls: calls,
		})

		for _, call := range calls {
			if err := h.OnToolCall(ctx, providers.ToolCall{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			}); err != nil {
				return err
			}

			result := executeTool(ctx, byName, call.Function.Name, call.Function.Arguments, s.logger)

			if err := h.OnToolResult(ctx, providers.ToolResult{
				ID:     call.ID,
				Name:   call.Function.Name,
				Result: result,
			}); err != nil {
				return err
			}

			messages = append(messages, goopenai.ChatCompletionMessage{
				Role:       goopenai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}
}

// consume drains one streamed completion, reporting text deltas and
// accumulating any tool call fragments by index.
func (s *CompletionsStream) consume(ctx context.Context, stream *goopenai.ChatCompletionStream, cumulative *strings.Builder, h providers.Handler) ([]goopenai.ToolCall, goopenai.FinishReason, error) {
	var calls []goopenai.ToolCall
	finish := goopenai.FinishReasonNull

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return calls, finish, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, finish, ctx.Err()
			}
			return nil, finish, fmt.Errorf("stream receive failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]

		if choice.Delta.Content != "" {
			cumulative.WriteString(choice.Delta.Content)
			if err := h.OnDelta(ctx, cumulative.String()); err != nil {
				return nil, finish, err
			}
		}

		for _, tc := range choice.Delta.ToolCalls {
			calls = mergeToolCall(calls, tc)
		}

		if choice.FinishReason != "" {
			finish = choice.FinishReason
		}
	}
}

// executeTool runs one requested tool, shared by both OpenAI wires.
// Unknown names come back as string error payloads so the model can
// react in conversation.
func executeTool(ctx context.Context, byName map[string]tools.Definition, name, arguments string, logger *slog.Logger) string {
	def, ok := byName[name]
	if !ok {
		logger.Warn("Model requested unknown tool",
			slog.String("tool", name))
		return fmt.Sprintf("Error: unknown function %s", name)
	}
	return def.Execute(ctx, arguments)
}

// mergeToolCall folds a streamed tool call fragment into the slot named
// by its index. IDs and names arrive on the first fragment, argument
// JSON arrives piecewise.
func mergeToolCall(calls []goopenai.ToolCall, delta goopenai.ToolCall) []goopenai.ToolCall {
	idx := 0
	if delta.Index != nil {
		idx = *delta.Index
	}
	for len(calls) <= idx {
		calls = append(calls, goopenai.ToolCall{Type: goopenai.ToolTypeFunction})
	}

	c := &calls[idx]
	if delta.ID != "" {
		c.ID = delta.ID
	}
	if delta.Function.Name != "" {
		c.Function.Name = delta.Function.Name
	}
	c.Function.Arguments += delta.Function.Arguments
	return calls
}
