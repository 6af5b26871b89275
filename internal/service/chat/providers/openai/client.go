// Package openai adapts the three OpenAI calling conventions to the
// provider Stream contract: the chat completions wire, the responses
// wire used by reasoning models, and the assistant run/poll flow.
package openai

import (
	goopenai "github.com/sashabaranov/go-openai"
)

// NewClient builds a go-openai client, honoring a custom base URL for
// proxy or gateway deployments.
func NewClient(apiKey, baseURL string) *goopenai.Client {
	if baseURL == "" {
		return goopenai.NewClient(apiKey)
	}

	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return goopenai.NewClientWithConfig(cfg)
}
