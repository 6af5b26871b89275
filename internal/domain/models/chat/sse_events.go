package chat

import (
	"encoding/json"
	"fmt"
)

// SSE event type constants. Exactly one terminal event (finalContent,
// abort, or error) closes a stream; nothing is emitted after it.
const (
	SSEEventContent            = "content"            // Cumulative assistant text so far
	SSEEventCitations          = "citations"          // Passages the user message was grounded on
	SSEEventFunctionCall       = "functionCall"       // Model requested a tool invocation
	SSEEventFunctionCallResult = "functionCallResult" // Tool produced its result
	SSEEventFinalContent       = "finalContent"       // Terminal: complete assistant text
	SSEEventAbort              = "abort"              // Terminal: client cancelled
	SSEEventError              = "error"              // Terminal: provider failure
)

// ContentEvent carries the running buffer's current full value, not the
// delta. Consumers always receive the cumulative text, which keeps
// client-side rendering and reconnect recovery trivial.
type ContentEvent struct {
	Content string `json:"content"`
}

// CitationsEvent carries the retrieved passages for a grounded turn,
// emitted once before any content so the client can resolve the inline
// citation markers in the assistant text.
type CitationsEvent struct {
	Citations []Citation `json:"citations"`
}

// FunctionCallEvent records a tool invocation requested by the model.
type FunctionCallEvent struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FunctionCallResultEvent carries a tool's output payload. Tool failures
// arrive here too, as string error payloads, so the model can react in
// conversation.
type FunctionCallResultEvent struct {
	Name   string `json:"name"`
	Result string `json:"result"`
}

// FinalContentEvent is the success terminal event. An empty Content is
// valid: empty completions finalize normally.
type FinalContentEvent struct {
	Content string `json:"content"`
}

// AbortEvent is the cancellation terminal event.
type AbortEvent struct {
	Reason string `json:"reason,omitempty"`
}

// ErrorEvent is the failure terminal event with a human-readable message.
type ErrorEvent struct {
	Message string `json:"message"`
}

// FormatSSE renders one wire frame:
//
//	event: event_name
//	data: {"field": "value"}
//	\n
func FormatSSE(eventType string, data interface{}) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal SSE event data: %w", err)
	}

	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, string(jsonData)), nil
}
