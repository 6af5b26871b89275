package tools

import "time"

// ToolConfig centralizes configuration for all tools.
// Replaces magic numbers scattered throughout tool implementations.
type ToolConfig struct {
	// Image tool configuration
	MaxImagePromptLength int    // DALL-E 3 rejects prompts at or above this length
	ImageModel           string // Image generation model name

	// Dynamic tool configuration
	HTTPTimeout time.Duration // Per-call timeout for dynamic tool HTTP requests
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() *ToolConfig {
	return &ToolConfig{
		// Image tool defaults
		MaxImagePromptLength: 4000,
		ImageModel:           "dall-e-3",

		// Dynamic tool defaults
		HTTPTimeout: 60 * time.Second,
	}
}
