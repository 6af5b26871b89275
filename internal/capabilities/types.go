package capabilities

import "gopkg.in/yaml.v3"

// Family identifies which vendor's endpoint serves a model
type Family string

const (
	FamilyOpenAI  Family = "openai"
	FamilyMistral Family = "mistral"
)

// Wire identifies the streaming wire shape a model speaks
type Wire string

const (
	WireCompletions Wire = "completions"
	WireResponses   Wire = "responses"
)

// ModelCapabilities represents all metadata for a specific model
type ModelCapabilities struct {
	// Model identifier (set during YAML unmarshaling)
	ID string `yaml:"-" json:"id"`

	// Display information
	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	// Routing facts
	Family Family `yaml:"family" json:"family"`
	Wire   Wire   `yaml:"wire" json:"wire"`

	// Legacy marks reduced-capability models that reject tool
	// definitions, sampling temperature, and function-role history.
	Legacy bool `yaml:"legacy" json:"legacy"`

	SupportsVision bool `yaml:"supports_vision" json:"supports_vision"`

	// AssistantCapable models route through the provider-side
	// assistant-thread run/poll flow.
	AssistantCapable bool `yaml:"assistant_capable" json:"assistant_capable"`

	// ReasoningEffort is sent as the reasoning hint on the responses
	// wire when non-empty ("low", "medium", "high").
	ReasoningEffort string `yaml:"reasoning_effort" json:"reasoning_effort"`

	// Limits
	MaxOutput int `yaml:"max_output" json:"max_output"`
}

// ModelSet represents all configured models
type ModelSet struct {
	Models []ModelCapabilities `yaml:"-" json:"models"` // Ordered slice, populated by custom unmarshaler
}

// UnmarshalYAML implements custom YAML unmarshaling to preserve model order from YAML file
func (s *ModelSet) UnmarshalYAML(node *yaml.Node) error {
	// Decode models into a map first to get the full data
	type modelsOnly struct {
		Models map[string]ModelCapabilities `yaml:"models"`
	}
	var m modelsOnly
	if err := node.Decode(&m); err != nil {
		return err
	}

	// Now extract model keys in YAML order and build the slice
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == "models" {
			modelsNode := node.Content[i+1]
			// modelsNode.Content alternates: key, value, key, value...
			for j := 0; j < len(modelsNode.Content); j += 2 {
				modelID := modelsNode.Content[j].Value
				if model, ok := m.Models[modelID]; ok {
					model.ID = modelID
					s.Models = append(s.Models, model)
				}
			}
			break
		}
	}

	return nil
}
