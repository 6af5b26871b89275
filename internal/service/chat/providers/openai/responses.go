package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"parley/internal/service/chat/providers"
	"parley/internal/service/chat/tools"
)

// DefaultResponsesBaseURL is the default endpoint for the responses wire
const DefaultResponsesBaseURL = "https://api.openai.com/v1"

// ResponsesStream drives the responses wire used by reasoning models.
// These models take a max output token cap and a reasoning effort level,
// and legacy ones reject sampling parameters, so the request shape is
// distinct from the completions wire. Tool calls arrive as function_call
// output items; the adapter executes them and resumes the model with
// function_call_output items until the turn finishes with plain text.
type ResponsesStream struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewResponsesStream creates a new ResponsesStream. An empty baseURL
// falls back to the public API endpoint.
func NewResponsesStream(apiKey, baseURL string, logger *slog.Logger) *ResponsesStream {
	if baseURL == "" {
		baseURL = DefaultResponsesBaseURL
	}
	return &ResponsesStream{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// No client timeout: streams stay open for the full generation
		// and are bounded by the request context instead.
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type responsesRequest struct {
	Model           string               `json:"model"`
	Input           []responsesInputItem `json:"input"`
	Tools           []responsesTool      `json:"tools,omitempty"`
	ToolChoice      string               `json:"tool_choice,omitempty"`
	Temperature     *float32             `json:"temperature,omitempty"`
	MaxOutputTokens int                  `json:"max_output_tokens,omitempty"`
	Reasoning       *responsesReasoning  `json:"reasoning,omitempty"`
	Store           bool                 `json:"store"`
	Stream          bool                 `json:"stream"`
}

// responsesInputItem is the union of the input item shapes sent on this
// wire: plain messages (Role+Content), function_call echoes, and
// function_call_output results.
type responsesInputItem struct {
	Type      string      `json:"type,omitempty"`
	Role      string      `json:"role,omitempty"`
	Content   interface{} `json:"content,omitempty"`
	CallID    string      `json:"call_id,omitempty"`
	Name      string      `json:"name,omitempty"`
	Arguments string      `json:"arguments,omitempty"`
	Output    string      `json:"output,omitempty"`
}

// responsesContentPart is one part of a multimodal message.
type responsesContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// responsesTool is the flat function definition shape of this wire; the
// completions wire nests the same fields under a "function" key.
type responsesTool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type responsesReasoning struct {
	Effort string `json:"effort"`
}

// responsesEvent is the union of the stream event payloads we care
// about, keyed by Type.
type responsesEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
	Text  string `json:"text"`
	Item  *struct {
		Type      string `json:"type"`
		CallID    string `json:"call_id"`
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"item"`
	Response *struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"response"`
	Message string `json:"message"`
}

// responsesToolCall is a completed function_call output item.
type responsesToolCall struct {
	CallID    string
	Name      string
	Arguments string
}

// Run implements providers.Stream.
func (s *ResponsesStream) Run(ctx context.Context, req *providers.Request, h providers.Handler) error {
	byName := make(map[string]tools.Definition, len(req.Tools))
	apiTools := make([]responsesTool, 0, len(req.Tools))
	for _, t := range req.Tools {
		byName[t.Name] = t
		apiTools = append(apiTools, responsesTool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}

	input := inputItems(req.Messages)

	// Cumulative text spans tool rounds: the client sees one growing
	// assistant message for the whole turn.
	var cumulative string

	for round := 0; ; round++ {
		if round >= maxToolRounds {
			return fmt.Errorf("tool call limit reached after %d rounds", maxToolRounds)
		}

		body := responsesRequest{
			Model:           req.Model,
			Input:           input,
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
			Stream:          true,
		}
		if len(apiTools) > 0 {
			body.Tools = apiTools
			body.ToolChoice = "auto"
		}
		if req.ReasoningEffort != "" {
			body.Reasoning = &responsesReasoning{Effort: req.ReasoningEffort}
		}

		calls, err := s.runOnce(ctx, body, &cumulative, h)
		if err != nil {
			return err
		}

		if len(calls) == 0 {
			return h.OnDone(ctx, cumulative)
		}

		for _, call := range calls {
			if err := h.OnToolCall(ctx, providers.ToolCall{
				ID:        call.CallID,
				Name:      call.Name,
				Arguments: call.Arguments,
			}); err != nil {
				return err
			}

			result := executeTool(ctx, byName, call.Name, call.Arguments, s.logger)

			if err := h.OnToolResult(ctx, providers.ToolResult{
				ID:     call.CallID,
				Name:   call.Name,
				Result: result,
			}); err != nil {
				return err
			}

			input = append(input,
				responsesInputItem{
					Type:      "function_call",
					CallID:    call.CallID,
					Name:      call.Name,
					Arguments: call.Arguments,
				},
				responsesInputItem{
					Type:   "function_call_output",
					CallID: call.CallID,
					Output: result,
				})
		}
	}
}

// runOnce posts one request and drains its stream, returning any
// completed function calls.
func (s *ResponsesStream) runOnce(ctx context.Context, body responsesRequest, cumulative *string, h providers.Handler) ([]responsesToolCall, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(errBody))
	}

	return s.consume(ctx, resp.Body, cumulative, h)
}

// consume reads the event stream line by line. Chunks that fail to
// parse are logged and skipped rather than failing the turn.
func (s *ResponsesStream) consume(ctx context.Context, body io.Reader, cumulative *string, h providers.Handler) ([]responsesToolCall, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// The output_text.done event carries the authoritative text for
	// this round, replacing whatever the deltas accumulated.
	base := *cumulative
	var calls []responsesToolCall

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var ev responsesEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			s.logger.Warn("Skipping malformed stream chunk",
				slog.String("error", err.Error()))
			continue
		}

		switch ev.Type {
		case "response.output_text.delta":
			*cumulative += ev.Delta
			if err := h.OnDelta(ctx, *cumulative); err != nil {
				return nil, err
			}
		case "response.output_text.done":
			*cumulative = base + ev.Text
		case "response.output_item.done":
			if ev.Item != nil && ev.Item.Type == "function_call" {
				calls = append(calls, responsesToolCall{
					CallID:    ev.Item.CallID,
					Name:      ev.Item.Name,
					Arguments: ev.Item.Arguments,
				})
			}
		case "response.failed", "error":
			return nil, fmt.Errorf("response stream failed: %s", s.errorMessage(ev))
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}

	return calls, nil
}

// inputItems maps the assembled message list onto the input item shape,
// expanding multimodal messages into input_text/input_image parts.
func inputItems(messages []goopenai.ChatCompletionMessage) []responsesInputItem {
	items := make([]responsesInputItem, 0, len(messages))
	for _, m := range messages {
		if len(m.MultiContent) > 0 {
			parts := make([]responsesContentPart, 0, len(m.MultiContent))
			for _, p := range m.MultiContent {
				switch p.Type {
				case goopenai.ChatMessagePartTypeText:
					parts = append(parts, responsesContentPart{Type: "input_text", Text: p.Text})
				case goopenai.ChatMessagePartTypeImageURL:
					if p.ImageURL != nil {
						parts = append(parts, responsesContentPart{Type: "input_image", ImageURL: p.ImageURL.URL})
					}
				}
			}
			items = append(items, responsesInputItem{Role: m.Role, Content: parts})
			continue
		}
		items = append(items, responsesInputItem{Role: m.Role, Content: m.Content})
	}
	return items
}

func (s *ResponsesStream) errorMessage(ev responsesEvent) string {
	if ev.Response != nil && ev.Response.Error != nil && ev.Response.Error.Message != "" {
		return ev.Response.Error.Message
	}
	if ev.Message != "" {
		return ev.Message
	}
	return "unknown error"
}
