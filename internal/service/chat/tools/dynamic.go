package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	chatModels "parley/internal/domain/models/chat"
	chatRepo "parley/internal/domain/repositories/chat"
)

// DynamicTools turns stored extension definitions into callable tools.
// Each extension function maps to one HTTP endpoint; secured header
// values come from the repository at call time and are never logged.
type DynamicTools struct {
	extensions chatRepo.ExtensionRepository
	httpClient *http.Client
	config     *ToolConfig
	logger     *slog.Logger
}

// NewDynamicTools creates a new DynamicTools resolver
func NewDynamicTools(extensions chatRepo.ExtensionRepository, config *ToolConfig, logger *slog.Logger) *DynamicTools {
	if config == nil {
		config = DefaultToolConfig()
	}
	return &DynamicTools{
		extensions: extensions,
		httpClient: &http.Client{Timeout: config.HTTPTimeout},
		config:     config,
		logger:     logger,
	}
}

// Resolve builds tool definitions for every function of the thread's
// attached extensions. The hashed user id is forced into the
// authorization header of every call, overriding any stored header of
// the same name.
func (d *DynamicTools) Resolve(ctx context.Context, thread *chatModels.Thread, hashedUserID string) ([]Definition, error) {
	extensions, err := d.extensions.ListExtensions(ctx, thread.ExtensionIDs, thread.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve extensions: %w", err)
	}

	var defs []Definition
	for i := range extensions {
		ext := extensions[i]
		for j := range ext.Functions {
			fn := ext.Functions[j]
			defs = append(defs, Definition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Parameters,
				Execute: func(ctx context.Context, arguments string) string {
					return d.execute(ctx, &ext, &fn, hashedUserID, arguments)
				},
			})
		}
	}

	return defs, nil
}

// dynamicArgs is the argument envelope dynamic tools accept: a query
// object for endpoint placeholder substitution and a body object sent
// as the JSON request body.
type dynamicArgs struct {
	Query map[string]string      `json:"query"`
	Body  map[string]interface{} `json:"body"`
}

func (d *DynamicTools) execute(ctx context.Context, ext *chatModels.Extension, fn *chatModels.ExtensionFunction, hashedUserID, arguments string) string {
	var args dynamicArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return fmt.Sprintf("Error: invalid arguments: %v", err)
	}

	headers := make(map[string]string, len(ext.Headers)+1)
	for _, h := range ext.Headers {
		value, err := d.extensions.SecureHeaderValue(ctx, h.ID)
		if err != nil {
			d.logger.Warn("secured header lookup failed", "header_key", h.Key, "extension_id", ext.ID)
			value = "***"
		}
		headers[h.Key] = value
	}
	headers["authorization"] = hashedUserID

	// Literal first-occurrence substitution of each query key into the
	// endpoint template.
	endpoint := fn.Endpoint
	for key, value := range args.Query {
		endpoint = strings.Replace(endpoint, key, value, 1)
	}

	var body io.Reader
	if args.Body != nil {
		payload, err := json.Marshal(args.Body)
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, fn.Method, endpoint, body)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if args.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Error("dynamic tool call failed", "tool", fn.Name, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Sprintf("Error calling API: %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	var result interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{"id": fn.ID, "result": result})
	return string(payload)
}
