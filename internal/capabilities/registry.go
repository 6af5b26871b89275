package capabilities

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry manages model capabilities for strategy selection and
// adapter dispatch
type Registry struct {
	models map[string]*ModelCapabilities
	order  []string
	mu     sync.RWMutex
}

// NewRegistry creates a new capability registry and loads the embedded
// YAML file
func NewRegistry() (*Registry, error) {
	r := &Registry{
		models: make(map[string]*ModelCapabilities),
	}

	if err := r.loadFile("models"); err != nil {
		return nil, fmt.Errorf("failed to load model capabilities: %w", err)
	}

	return r, nil
}

// loadFile loads a capability YAML file
func (r *Registry) loadFile(name string) error {
	filename := fmt.Sprintf("config/%s.yaml", name)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var set ModelSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	r.mu.Lock()
	for i := range set.Models {
		m := set.Models[i]
		r.models[m.ID] = &m
		r.order = append(r.order, m.ID)
	}
	r.mu.Unlock()

	return nil
}

// Lookup returns capabilities for a model. Unknown models fall back to
// plain openai completions defaults so routing stays total.
func (r *Registry) Lookup(model string) *ModelCapabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if caps, ok := r.models[model]; ok {
		return caps
	}

	return &ModelCapabilities{
		ID:        model,
		Family:    FamilyOpenAI,
		Wire:      WireCompletions,
		MaxOutput: 4096,
	}
}

// ListModels returns all configured models (ordered as defined in YAML)
func (r *Registry) ListModels() []ModelCapabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModelCapabilities, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.models[id])
	}
	return out
}
