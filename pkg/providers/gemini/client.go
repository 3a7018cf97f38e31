// Package gemini implements the chat, vision, and embedding provider
// interfaces against the Gemini generateContent API as exposed by
// Vertex AI regional endpoints.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
)

const defaultBaseURL = "https://europe-west4-aiplatform.googleapis.com"

// Client talks to a Gemini-compatible endpoint.
type Client struct {
	*providers.HTTPClient
	baseURL string
}

var (
	_ providers.ChatProvider      = (*Client)(nil)
	_ providers.VisionProvider    = (*Client)(nil)
	_ providers.EmbeddingProvider = (*Client)(nil)
)

// New creates a client from provider configuration.
func New(cfg providers.Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: api key is required", cfg.Name)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		HTTPClient: providers.NewHTTPClient(cfg),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.Config().APIKey,
		"Content-Type":  "application/json",
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
	FileData   *fileData   `json:"fileData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type fileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (c *Client) generateURL(model string) string {
	return fmt.Sprintf("%s/v1/models/%s:generateContent", c.baseURL, model)
}

func (c *Client) generate(ctx context.Context, model string, body generateRequest) (string, providers.Usage, error) {
	var resp generateResponse
	if err := c.DoJSON(ctx, http.MethodPost, c.generateURL(model), body, &resp, c.headers()); err != nil {
		return "", providers.Usage{}, err
	}
	if len(resp.Candidates) == 0 {
		return "", providers.Usage{}, &providers.VendorError{Provider: c.Name(), Message: "response contained no candidates"}
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	usage := providers.Usage{
		InputUnits:  resp.UsageMetadata.PromptTokenCount,
		OutputUnits: resp.UsageMetadata.CandidatesTokenCount,
	}
	return sb.String(), usage, nil
}

// Chat sends a text completion request.
func (c *Client) Chat(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResult, error) {
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
	}
	if req.System != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		body.GenerationConfig = &generationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		}
	}

	text, usage, err := c.generate(ctx, req.Model, body)
	if err != nil {
		return nil, err
	}
	return &providers.ChatResult{Content: text, Usage: usage}, nil
}

// Vision sends a prompt together with an image.
func (c *Client) Vision(ctx context.Context, req *providers.VisionRequest) (*providers.VisionResult, error) {
	parts := []part{{Text: req.Prompt}}
	switch {
	case len(req.ImageData) > 0:
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: req.ImageMediaType,
			Data:     base64.StdEncoding.EncodeToString(req.ImageData),
		}})
	case req.ImageURL != "":
		parts = append(parts, part{FileData: &fileData{
			MimeType: req.ImageMediaType,
			FileURI:  req.ImageURL,
		}})
	default:
		return nil, fmt.Errorf("provider %s: vision request has no image", c.Name())
	}

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
	}
	if req.MaxTokens > 0 {
		body.GenerationConfig = &generationConfig{MaxOutputTokens: req.MaxTokens}
	}

	text, usage, err := c.generate(ctx, req.Model, body)
	if err != nil {
		return nil, err
	}
	return &providers.VisionResult{Content: text, Usage: usage}, nil
}

type batchEmbedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type embedContentRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// Embed returns one vector per input, in input order.
func (c *Client) Embed(ctx context.Context, req *providers.EmbedRequest) (*providers.EmbedResult, error) {
	body := batchEmbedRequest{Requests: make([]embedContentRequest, len(req.Inputs))}
	for i, in := range req.Inputs {
		body.Requests[i] = embedContentRequest{
			Model:   "models/" + req.Model,
			Content: content{Parts: []part{{Text: in}}},
		}
	}

	url := fmt.Sprintf("%s/v1/models/%s:batchEmbedContents", c.baseURL, req.Model)
	var resp batchEmbedResponse
	if err := c.DoJSON(ctx, http.MethodPost, url, body, &resp, c.headers()); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(req.Inputs) {
		return nil, &providers.VendorError{
			Provider: c.Name(),
			Message:  fmt.Sprintf("expected %d embeddings, got %d", len(req.Inputs), len(resp.Embeddings)),
		}
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}

	return &providers.EmbedResult{
		Vectors: vectors,
		Usage:   providers.Usage{InputUnits: int64(len(req.Inputs))},
	}, nil
}
