// Package export holds the client for the external deck rendering
// service behind the export_ppt tool.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultDeckTimeout is the default HTTP timeout for deck rendering.
// Rendering a full deck is slow, so this is deliberately generous.
const DefaultDeckTimeout = 90 * time.Second

// DeckClient renders slide decks through an external service and
// returns a download URL.
type DeckClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewDeckClient creates a new deck rendering client.
func NewDeckClient(endpoint, apiKey string) *DeckClient {
	return &DeckClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: DefaultDeckTimeout,
		},
	}
}

// Export submits the deck JSON for rendering and returns the URL of the
// generated file.
func (c *DeckClient) Export(ctx context.Context, threadID, deckJSON string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("deck export service is not configured")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"thread_id": threadID,
		"deck":      json.RawMessage(deckJSON),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var rendered struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &rendered); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if rendered.URL == "" {
		return "", fmt.Errorf("deck service returned no download url")
	}
	return rendered.URL, nil
}
