// Package providers holds the adapters for the upstream LLM calling
// conventions. Each adapter turns an assembled context into a live
// provider connection and reports it through the Handler capability,
// so downstream code never depends on a concrete wire shape.
package providers

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"parley/internal/service/chat/tools"
)

// Request is one assembled provider invocation.
type Request struct {
	Model    string
	Messages []openai.ChatCompletionMessage

	// Temperature is omitted from the wire when nil (legacy models
	// reject the parameter outright).
	Temperature *float32

	// Tools is empty for legacy models and the simple strategy.
	Tools []tools.Definition

	// MaxOutputTokens and ReasoningEffort apply to the responses wire.
	MaxOutputTokens int
	ReasoningEffort string

	// ProviderThreadID and UserText drive the assistant run/poll flow,
	// which appends the raw user text to a provider-side thread instead
	// of sending the assembled message list.
	ProviderThreadID string
	UserText         string
}

// ToolCall is a tool invocation requested by the model mid-stream.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResult is the outcome of one tool execution. Failures arrive as
// string error payloads in Result, never as Go errors.
type ToolResult struct {
	ID     string
	Name   string
	Result string
}

// Handler receives normalized stream activity. Hooks are invoked
// synchronously and in order: a tool call is reported (and persisted by
// the implementation) before the tool runs, and its result is reported
// before the model turn resumes. A non-nil return aborts the stream.
type Handler interface {
	// OnDelta carries the cumulative text so far, not the increment.
	OnDelta(ctx context.Context, cumulative string) error
	OnToolCall(ctx context.Context, call ToolCall) error
	OnToolResult(ctx context.Context, res ToolResult) error
	// OnDone fires once with the complete final text. Empty is valid.
	OnDone(ctx context.Context, final string) error
}

// Stream is the live-stream capability every adapter implements.
// Run blocks for the duration of the provider exchange. Cancellation of
// ctx terminates the upstream call; Run then returns ctx.Err(). Any
// other non-nil return is a provider failure, with whatever partial
// text was reported through OnDelta still standing.
type Stream interface {
	Run(ctx context.Context, req *Request, h Handler) error
}
