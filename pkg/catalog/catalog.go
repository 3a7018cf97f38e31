package catalog

import (
	"fmt"
	"time"
)

// Modality identifies a request kind the gateway can mediate.
type Modality string

// Supported modalities.
const (
	ModalityChat      Modality = "chat"
	ModalityVision    Modality = "vision"
	ModalityAudio     Modality = "audio"
	ModalityEmbedding Modality = "embedding"
)

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityChat, ModalityVision, ModalityAudio, ModalityEmbedding:
		return true
	}
	return false
}

// CostParams holds the billing parameters for one model. Credits are
// computed as BaseCost + PerUnitRate * billable units, where the unit
// depends on the modality: tokens for chat and vision, items for
// embeddings, seconds of audio for transcription.
type CostParams struct {
	// BaseCost is the fixed per-request cost in credits.
	BaseCost float64 `yaml:"base_cost"`

	// PerUnitRate is the cost in credits per billable unit.
	PerUnitRate float64 `yaml:"per_unit_rate"`
}

// ModelDescriptor is the static catalog entry for one (provider, model)
// pair. Descriptors are read-only after catalog construction.
type ModelDescriptor struct {
	// Provider is the logical provider name (e.g. "anthropic",
	// "vertex_claude", "scaleway").
	Provider string `yaml:"provider"`

	// ModelID is the provider-side model identifier.
	ModelID string `yaml:"model_id"`

	// Modalities lists the request kinds this model supports.
	Modalities []Modality `yaml:"modalities"`

	// ContextWindow is the model's context window in tokens.
	ContextWindow int `yaml:"context_window"`

	// MaxOutputTokens caps the tokens a single call may generate.
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// Region is the hosting region (e.g. "us", "eu-west-1").
	Region string `yaml:"region"`

	// EUCompliant marks models that satisfy the EU data-residency
	// policy. The selector never resolves an EU-only tenant to a
	// descriptor with EUCompliant=false.
	EUCompliant bool `yaml:"eu_compliant"`

	// Cost holds the billing parameters for this model.
	Cost CostParams `yaml:"cost"`

	// Timeout is the per-call deadline applied when invoking this
	// model. Zero means the gateway default.
	Timeout time.Duration `yaml:"timeout"`
}

// Supports reports whether the descriptor covers the given modality.
func (d *ModelDescriptor) Supports(m Modality) bool {
	for _, have := range d.Modalities {
		if have == m {
			return true
		}
	}
	return false
}

// UnknownModelError is returned when a (provider, model) pair is not
// present in the catalog.
type UnknownModelError struct {
	// Provider is the requested provider name.
	Provider string

	// Model is the requested model identifier.
	Model string
}

// Error implements the error interface.
func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q for provider %q", e.Model, e.Provider)
}

// ModalityNotSupportedError is returned when a resolved descriptor does
// not support the requested modality.
type ModalityNotSupportedError struct {
	// Provider is the provider that was resolved.
	Provider string

	// Model is the model that was resolved.
	Model string

	// Modality is the unsupported request kind.
	Modality Modality
}

// Error implements the error interface.
func (e *ModalityNotSupportedError) Error() string {
	return fmt.Sprintf("model %q of provider %q does not support modality %q",
		e.Model, e.Provider, e.Modality)
}

type modelKey struct {
	provider string
	model    string
}

// Catalog is the immutable (provider, model) descriptor index.
type Catalog struct {
	models map[modelKey]*ModelDescriptor

	// providerModels keeps the declared per-provider model order.
	providerModels map[string][]*ModelDescriptor

	// providers keeps the declared provider order.
	providers []string
}

// New builds a catalog from descriptors, preserving their declared
// order. Duplicate (provider, model) pairs are rejected.
func New(descriptors []ModelDescriptor) (*Catalog, error) {
	c := &Catalog{
		models:         make(map[modelKey]*ModelDescriptor, len(descriptors)),
		providerModels: make(map[string][]*ModelDescriptor),
	}

	for i := range descriptors {
		d := descriptors[i]
		if d.Provider == "" || d.ModelID == "" {
			return nil, fmt.Errorf("catalog entry %d: provider and model_id are required", i)
		}
		if len(d.Modalities) == 0 {
			return nil, fmt.Errorf("catalog entry %s/%s: at least one modality is required", d.Provider, d.ModelID)
		}
		for _, m := range d.Modalities {
			if !m.Valid() {
				return nil, fmt.Errorf("catalog entry %s/%s: unknown modality %q", d.Provider, d.ModelID, m)
			}
		}

		key := modelKey{provider: d.Provider, model: d.ModelID}
		if _, dup := c.models[key]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %s/%s", d.Provider, d.ModelID)
		}

		if _, seen := c.providerModels[d.Provider]; !seen {
			c.providers = append(c.providers, d.Provider)
		}
		c.models[key] = &d
		c.providerModels[d.Provider] = append(c.providerModels[d.Provider], &d)
	}

	return c, nil
}

// Describe resolves a (provider, model) pair.
// Returns UnknownModelError if the pair is not in the catalog.
func (c *Catalog) Describe(provider, model string) (*ModelDescriptor, error) {
	d, ok := c.models[modelKey{provider: provider, model: model}]
	if !ok {
		return nil, &UnknownModelError{Provider: provider, Model: model}
	}
	return d, nil
}

// ModelsByModality returns every descriptor supporting the modality,
// in declared provider then model order.
func (c *Catalog) ModelsByModality(m Modality) []*ModelDescriptor {
	var out []*ModelDescriptor
	for _, provider := range c.providers {
		for _, d := range c.providerModels[provider] {
			if d.Supports(m) {
				out = append(out, d)
			}
		}
	}
	return out
}

// ProviderModels returns the provider's descriptors in declared order.
// Returns nil for unknown providers.
func (c *Catalog) ProviderModels(provider string) []*ModelDescriptor {
	return c.providerModels[provider]
}

// FirstModel returns the provider's first declared model supporting
// the modality. The declared order is the configuration-defined
// preference order, so the result is deterministic.
func (c *Catalog) FirstModel(provider string, m Modality) (*ModelDescriptor, bool) {
	for _, d := range c.providerModels[provider] {
		if d.Supports(m) {
			return d, true
		}
	}
	return nil, false
}

// Providers returns the provider names in declared order.
func (c *Catalog) Providers() []string {
	out := make([]string, len(c.providers))
	copy(out, c.providers)
	return out
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.models)
}
