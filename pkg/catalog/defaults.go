package catalog

import "time"

// Default returns the compiled-in catalog used when no catalog is
// configured. The declared order doubles as the preference order.
func Default() *Catalog {
	c, err := New(DefaultDescriptors())
	if err != nil {
		// The compiled-in descriptors are validated by tests; an
		// error here is a programming bug.
		panic(err)
	}
	return c
}

// DefaultDescriptors returns the compiled-in descriptor list.
func DefaultDescriptors() []ModelDescriptor {
	return []ModelDescriptor{
		{
			Provider:        "anthropic",
			ModelID:         "claude-sonnet-4-20250514",
			Modalities:      []Modality{ModalityChat, ModalityVision},
			ContextWindow:   200000,
			MaxOutputTokens: 8192,
			Region:          "us",
			EUCompliant:     false,
			Cost:            CostParams{BaseCost: 1.0, PerUnitRate: 0.003},
			Timeout:         60 * time.Second,
		},
		{
			Provider:        "anthropic",
			ModelID:         "claude-haiku-3-5-20241022",
			Modalities:      []Modality{ModalityChat, ModalityVision},
			ContextWindow:   200000,
			MaxOutputTokens: 8192,
			Region:          "us",
			EUCompliant:     false,
			Cost:            CostParams{BaseCost: 0.5, PerUnitRate: 0.001},
			Timeout:         30 * time.Second,
		},
		{
			Provider:        "openai",
			ModelID:         "gpt-4o",
			Modalities:      []Modality{ModalityChat, ModalityVision},
			ContextWindow:   128000,
			MaxOutputTokens: 16384,
			Region:          "us",
			EUCompliant:     false,
			Cost:            CostParams{BaseCost: 1.0, PerUnitRate: 0.0025},
			Timeout:         60 * time.Second,
		},
		{
			Provider:        "openai",
			ModelID:         "whisper-1",
			Modalities:      []Modality{ModalityAudio},
			Region:          "us",
			EUCompliant:     false,
			Cost:            CostParams{BaseCost: 2.0, PerUnitRate: 0.006},
			Timeout:         300 * time.Second,
		},
		{
			Provider:        "openai",
			ModelID:         "text-embedding-3-small",
			Modalities:      []Modality{ModalityEmbedding},
			ContextWindow:   8191,
			Region:          "us",
			EUCompliant:     false,
			Cost:            CostParams{BaseCost: 0.1, PerUnitRate: 0.02},
			Timeout:         30 * time.Second,
		},
		{
			Provider:        "vertex_claude",
			ModelID:         "claude-sonnet-4@europe-west4",
			Modalities:      []Modality{ModalityChat, ModalityVision},
			ContextWindow:   200000,
			MaxOutputTokens: 8192,
			Region:          "europe-west4",
			EUCompliant:     true,
			Cost:            CostParams{BaseCost: 1.2, PerUnitRate: 0.0035},
			Timeout:         60 * time.Second,
		},
		{
			Provider:        "scaleway",
			ModelID:         "llama-3.3-70b-instruct",
			Modalities:      []Modality{ModalityChat},
			ContextWindow:   131072,
			MaxOutputTokens: 8192,
			Region:          "fr-par",
			EUCompliant:     true,
			Cost:            CostParams{BaseCost: 0.8, PerUnitRate: 0.0012},
			Timeout:         60 * time.Second,
		},
		{
			Provider:        "scaleway",
			ModelID:         "whisper-large-v3",
			Modalities:      []Modality{ModalityAudio},
			Region:          "fr-par",
			EUCompliant:     true,
			Cost:            CostParams{BaseCost: 2.0, PerUnitRate: 0.005},
			Timeout:         300 * time.Second,
		},
		{
			Provider:        "scaleway",
			ModelID:         "bge-multilingual-gemma2",
			Modalities:      []Modality{ModalityEmbedding},
			ContextWindow:   4096,
			Region:          "fr-par",
			EUCompliant:     true,
			Cost:            CostParams{BaseCost: 0.1, PerUnitRate: 0.015},
			Timeout:         30 * time.Second,
		},
		{
			Provider:        "vertex_gemini",
			ModelID:         "gemini-2.0-flash@europe-west4",
			Modalities:      []Modality{ModalityChat, ModalityVision, ModalityEmbedding},
			ContextWindow:   1048576,
			MaxOutputTokens: 8192,
			Region:          "europe-west4",
			EUCompliant:     true,
			Cost:            CostParams{BaseCost: 0.6, PerUnitRate: 0.0008},
			Timeout:         60 * time.Second,
		},
		{
			Provider:        "mistral",
			ModelID:         "mistral-large-latest",
			Modalities:      []Modality{ModalityChat},
			ContextWindow:   131072,
			MaxOutputTokens: 8192,
			Region:          "eu-west-1",
			EUCompliant:     true,
			Cost:            CostParams{BaseCost: 0.9, PerUnitRate: 0.002},
			Timeout:         60 * time.Second,
		},
		{
			Provider:        "mistral",
			ModelID:         "mistral-embed",
			Modalities:      []Modality{ModalityEmbedding},
			ContextWindow:   8192,
			Region:          "eu-west-1",
			EUCompliant:     true,
			Cost:            CostParams{BaseCost: 0.1, PerUnitRate: 0.01},
			Timeout:         30 * time.Second,
		},
	}
}

// DefaultFallbackChain is the descending-priority list of EU-compliant
// providers used when an EU-only tenant requests a non-compliant
// provider.
func DefaultFallbackChain() []string {
	return []string{"vertex_claude", "scaleway", "vertex_gemini"}
}
