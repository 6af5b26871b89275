// Package tools resolves and executes the callable tools a thread
// exposes to the model: the built-in image and deck-export tools plus
// user-defined dynamic HTTP tools.
package tools

import (
	"context"
	"encoding/json"
)

// ExecuteFunc runs a tool with the model's raw argument JSON and returns
// the payload handed back to the model. Execution failures are folded
// into the returned string, never surfaced as pipeline errors, so the
// model can react to them in conversation.
type ExecuteFunc func(ctx context.Context, arguments string) string

// Definition is one callable tool as offered to the provider.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Execute     ExecuteFunc
}
