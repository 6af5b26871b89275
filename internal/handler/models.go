package handler

import (
	"log/slog"
	"net/http"

	"parley/internal/capabilities"
	"parley/internal/config"
	"parley/internal/httputil"
)

// ModelsHandler handles HTTP requests for model capabilities
type ModelsHandler struct {
	config   *config.Config
	logger   *slog.Logger
	registry *capabilities.Registry
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(cfg *config.Config, logger *slog.Logger, registry *capabilities.Registry) *ModelsHandler {
	return &ModelsHandler{
		config:   cfg,
		logger:   logger,
		registry: registry,
	}
}

// ModelResponse represents a model's capabilities for the API response
type ModelResponse struct {
	ID           string           `json:"id"`
	DisplayName  string           `json:"display_name"`
	Description  string           `json:"description,omitempty"`
	Family       string           `json:"family"`
	Capabilities CapabilitiesInfo `json:"capabilities"`
}

// CapabilitiesInfo represents model capabilities
type CapabilitiesInfo struct {
	ImageInput bool `json:"image_input"` // Vision
	ToolCalls  bool `json:"tool_calls"`
	Assistant  bool `json:"assistant"`
	Streaming  bool `json:"streaming"`
}

// GetCapabilities returns the configured models, filtered to the
// vendors this deployment holds credentials for
// GET /api/models
func (h *ModelsHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	models := make([]ModelResponse, 0)

	for _, caps := range h.registry.ListModels() {
		if !h.vendorConfigured(caps.Family) {
			continue
		}

		models = append(models, ModelResponse{
			ID:          caps.ID,
			DisplayName: caps.DisplayName,
			Description: caps.Description,
			Family:      string(caps.Family),
			Capabilities: CapabilitiesInfo{
				ImageInput: caps.SupportsVision,
				ToolCalls:  !caps.Legacy && !caps.AssistantCapable && caps.Family == capabilities.FamilyOpenAI,
				Assistant:  caps.AssistantCapable,
				Streaming:  true,
			},
		})
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"models": models,
	})
}

func (h *ModelsHandler) vendorConfigured(family capabilities.Family) bool {
	switch family {
	case capabilities.FamilyMistral:
		return h.config.MistralAPIKey != ""
	default:
		return h.config.OpenAIAPIKey != ""
	}
}
