package gateway

import (
	"context"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/catalog"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/ledger"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/redact"
)

// ChatRequest is a mediated text completion.
type ChatRequest struct {
	TenantID    string  `json:"tenant_id"`
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// ChatResponse is the mediated completion result.
type ChatResponse struct {
	Meta    ResultMeta `json:"meta"`
	Content string     `json:"content"`
}

// Chat mediates a text completion request.
func (g *Gateway) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := validateCommon(req.TenantID, req.Provider, req.Model); err != nil {
		return nil, err
	}
	if req.Prompt == "" {
		return nil, &ValidationError{Field: "prompt", Message: "must not be empty"}
	}

	var matches []redact.Match
	system, err := g.sanitize(req.System, &matches)
	if err != nil {
		return nil, err
	}
	prompt, err := g.sanitize(req.Prompt, &matches)
	if err != nil {
		return nil, err
	}

	var content string
	meta, err := g.mediate(ctx, &mediation{
		tenantID:   req.TenantID,
		provider:   req.Provider,
		model:      req.Model,
		modality:   catalog.ModalityChat,
		piiMatches: matches,
		estimate: func(desc *catalog.ModelDescriptor) float64 {
			return ledger.Estimate(desc, catalog.ModalityChat, len(system)+len(prompt), req.MaxTokens, 0, 0)
		},
		call: func(ctx context.Context, desc *catalog.ModelDescriptor) (providers.Usage, error) {
			client, err := g.reg.Chat(desc.Provider)
			if err != nil {
				return providers.Usage{}, err
			}
			res, err := client.Chat(ctx, &providers.ChatRequest{
				Model:       desc.ModelID,
				System:      system,
				Prompt:      prompt,
				MaxTokens:   req.MaxTokens,
				Temperature: req.Temperature,
			})
			if err != nil {
				return providers.Usage{}, err
			}
			content = res.Content
			return res.Usage, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &ChatResponse{Meta: *meta, Content: content}, nil
}

// VisionRequest is a mediated image understanding request.
type VisionRequest struct {
	TenantID       string `json:"tenant_id"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	ImageURL       string `json:"image_url,omitempty"`
	ImageData      []byte `json:"image_data,omitempty"`
	ImageMediaType string `json:"image_media_type,omitempty"`
	MaxTokens      int    `json:"max_tokens,omitempty"`
}

// VisionResponse is the mediated vision result.
type VisionResponse struct {
	Meta    ResultMeta `json:"meta"`
	Content string     `json:"content"`
}

// Vision mediates an image understanding request.
func (g *Gateway) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	if err := validateCommon(req.TenantID, req.Provider, req.Model); err != nil {
		return nil, err
	}
	if req.Prompt == "" {
		return nil, &ValidationError{Field: "prompt", Message: "must not be empty"}
	}
	if len(req.ImageData) == 0 && req.ImageURL == "" {
		return nil, &ValidationError{Field: "image", Message: "either image_data or image_url is required"}
	}

	var matches []redact.Match
	prompt, err := g.sanitize(req.Prompt, &matches)
	if err != nil {
		return nil, err
	}

	var content string
	meta, err := g.mediate(ctx, &mediation{
		tenantID:   req.TenantID,
		provider:   req.Provider,
		model:      req.Model,
		modality:   catalog.ModalityVision,
		piiMatches: matches,
		estimate: func(desc *catalog.ModelDescriptor) float64 {
			return ledger.Estimate(desc, catalog.ModalityVision, len(prompt), req.MaxTokens, 0, 0)
		},
		call: func(ctx context.Context, desc *catalog.ModelDescriptor) (providers.Usage, error) {
			client, err := g.reg.Vision(desc.Provider)
			if err != nil {
				return providers.Usage{}, err
			}
			res, err := client.Vision(ctx, &providers.VisionRequest{
				Model:          desc.ModelID,
				Prompt:         prompt,
				ImageURL:       req.ImageURL,
				ImageData:      req.ImageData,
				ImageMediaType: req.ImageMediaType,
				MaxTokens:      req.MaxTokens,
			})
			if err != nil {
				return providers.Usage{}, err
			}
			content = res.Content
			return res.Usage, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &VisionResponse{Meta: *meta, Content: content}, nil
}

// TranscribeRequest is a mediated audio transcription.
type TranscribeRequest struct {
	TenantID        string  `json:"tenant_id"`
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	Audio           []byte  `json:"audio"`
	Format          string  `json:"format,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	Language        string  `json:"language,omitempty"`
}

// TranscribeResponse is the mediated transcription result.
type TranscribeResponse struct {
	Meta       ResultMeta `json:"meta"`
	Transcript string     `json:"transcript"`
}

// Transcribe mediates an audio transcription request. Audio content
// is opaque to the redaction engine; only the text transcript ever
// reaches logs, and those pass through the logging redactor.
func (g *Gateway) Transcribe(ctx context.Context, req *TranscribeRequest) (*TranscribeResponse, error) {
	if err := validateCommon(req.TenantID, req.Provider, req.Model); err != nil {
		return nil, err
	}
	if len(req.Audio) == 0 {
		return nil, &ValidationError{Field: "audio", Message: "must not be empty"}
	}
	if req.DurationSeconds <= 0 {
		return nil, &ValidationError{Field: "duration_seconds", Message: "must be positive"}
	}

	var transcript string
	meta, err := g.mediate(ctx, &mediation{
		tenantID: req.TenantID,
		provider: req.Provider,
		model:    req.Model,
		modality: catalog.ModalityAudio,
		estimate: func(desc *catalog.ModelDescriptor) float64 {
			return ledger.Estimate(desc, catalog.ModalityAudio, 0, 0, 0, req.DurationSeconds)
		},
		call: func(ctx context.Context, desc *catalog.ModelDescriptor) (providers.Usage, error) {
			client, err := g.reg.Audio(desc.Provider)
			if err != nil {
				return providers.Usage{}, err
			}
			res, err := client.Transcribe(ctx, &providers.AudioRequest{
				Model:           desc.ModelID,
				Audio:           req.Audio,
				Format:          req.Format,
				DurationSeconds: req.DurationSeconds,
				Language:        req.Language,
			})
			if err != nil {
				return providers.Usage{}, err
			}
			transcript = res.Transcript
			return res.Usage, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &TranscribeResponse{Meta: *meta, Transcript: transcript}, nil
}

// EmbedRequest is a mediated embedding request.
type EmbedRequest struct {
	TenantID string   `json:"tenant_id"`
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
	Inputs   []string `json:"inputs"`
}

// EmbedResponse is the mediated embedding result.
type EmbedResponse struct {
	Meta    ResultMeta  `json:"meta"`
	Vectors [][]float32 `json:"vectors"`
}

// Embed mediates an embedding request. Every input is sanitized
// individually before it leaves the gateway.
func (g *Gateway) Embed(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error) {
	if err := validateCommon(req.TenantID, req.Provider, req.Model); err != nil {
		return nil, err
	}
	if len(req.Inputs) == 0 {
		return nil, &ValidationError{Field: "inputs", Message: "must not be empty"}
	}

	var matches []redact.Match
	inputs := make([]string, len(req.Inputs))
	for i, in := range req.Inputs {
		clean, err := g.sanitize(in, &matches)
		if err != nil {
			return nil, err
		}
		inputs[i] = clean
	}

	var vectors [][]float32
	meta, err := g.mediate(ctx, &mediation{
		tenantID:   req.TenantID,
		provider:   req.Provider,
		model:      req.Model,
		modality:   catalog.ModalityEmbedding,
		piiMatches: matches,
		estimate: func(desc *catalog.ModelDescriptor) float64 {
			return ledger.Estimate(desc, catalog.ModalityEmbedding, 0, 0, len(inputs), 0)
		},
		call: func(ctx context.Context, desc *catalog.ModelDescriptor) (providers.Usage, error) {
			client, err := g.reg.Embedding(desc.Provider)
			if err != nil {
				return providers.Usage{}, err
			}
			res, err := client.Embed(ctx, &providers.EmbedRequest{
				Model:  desc.ModelID,
				Inputs: inputs,
			})
			if err != nil {
				return providers.Usage{}, err
			}
			vectors = res.Vectors
			return res.Usage, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &EmbedResponse{Meta: *meta, Vectors: vectors}, nil
}

func validateCommon(tenantID, provider, model string) error {
	if tenantID == "" {
		return &ValidationError{Field: "tenant_id", Message: "must not be empty"}
	}
	if provider == "" {
		return &ValidationError{Field: "provider", Message: "must not be empty"}
	}
	if model == "" {
		return &ValidationError{Field: "model", Message: "must not be empty"}
	}
	return nil
}
