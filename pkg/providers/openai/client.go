// Package openai implements the chat, vision, audio, and embedding
// provider interfaces against OpenAI-compatible APIs. Scaleway and
// Mistral expose the same wire protocol, so the client serves those
// providers too via their base URLs.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
)

const defaultBaseURL = "https://api.openai.com"

// Client talks to an OpenAI-compatible endpoint.
type Client struct {
	*providers.HTTPClient
	baseURL string
}

var (
	_ providers.ChatProvider      = (*Client)(nil)
	_ providers.VisionProvider    = (*Client)(nil)
	_ providers.AudioProvider     = (*Client)(nil)
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

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat sends a text completion request.
func (c *Client) Chat(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResult, error) {
	msgs := make([]chatMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	body := chatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	var resp chatCompletionResponse
	if err := c.DoJSON(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", body, &resp, c.headers()); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &providers.VendorError{Provider: c.Name(), Message: "response contained no choices"}
	}

	return &providers.ChatResult{
		Content: resp.Choices[0].Message.Content,
		Usage: providers.Usage{
			InputUnits:  resp.Usage.PromptTokens,
			OutputUnits: resp.Usage.CompletionTokens,
		},
	}, nil
}

// Vision sends a prompt together with an image.
func (c *Client) Vision(ctx context.Context, req *providers.VisionRequest) (*providers.VisionResult, error) {
	var ref imageRef
	switch {
	case len(req.ImageData) > 0:
		ref.URL = fmt.Sprintf("data:%s;base64,%s", req.ImageMediaType, base64.StdEncoding.EncodeToString(req.ImageData))
	case req.ImageURL != "":
		ref.URL = req.ImageURL
	default:
		return nil, fmt.Errorf("provider %s: vision request has no image", c.Name())
	}

	body := chatCompletionRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &ref},
			},
		}},
	}

	var resp chatCompletionResponse
	if err := c.DoJSON(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", body, &resp, c.headers()); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &providers.VendorError{Provider: c.Name(), Message: "response contained no choices"}
	}

	return &providers.VisionResult{
		Content: resp.Choices[0].Message.Content,
		Usage: providers.Usage{
			InputUnits:  resp.Usage.PromptTokens,
			OutputUnits: resp.Usage.CompletionTokens,
		},
	}, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads audio and returns its transcript. Billable
// units are the audio duration in whole seconds, supplied by the
// caller since the API does not echo it back.
func (c *Client) Transcribe(ctx context.Context, req *providers.AudioRequest) (*providers.AudioResult, error) {
	fields := map[string]string{"model": req.Model}
	if req.Language != "" {
		fields["language"] = req.Language
	}
	fileName := "audio." + req.Format
	if req.Format == "" {
		fileName = "audio.wav"
	}

	var resp transcriptionResponse
	if err := c.DoMultipart(ctx, c.baseURL+"/v1/audio/transcriptions", "file", fileName, req.Audio, fields, &resp); err != nil {
		return nil, err
	}

	seconds := int64(req.DurationSeconds)
	if req.DurationSeconds > float64(seconds) {
		seconds++
	}
	return &providers.AudioResult{
		Transcript: resp.Text,
		Usage:      providers.Usage{InputUnits: seconds},
	}, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int64 `json:"prompt_tokens"`
	} `json:"usage"`
}

// Embed returns one vector per input, in input order.
func (c *Client) Embed(ctx context.Context, req *providers.EmbedRequest) (*providers.EmbedResult, error) {
	body := embeddingRequest{Model: req.Model, Input: req.Inputs}

	var resp embeddingResponse
	if err := c.DoJSON(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", body, &resp, c.headers()); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(req.Inputs) {
		return nil, &providers.VendorError{
			Provider: c.Name(),
			Message:  "expected " + strconv.Itoa(len(req.Inputs)) + " embeddings, got " + strconv.Itoa(len(resp.Data)),
		}
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, &providers.VendorError{Provider: c.Name(), Message: "embedding index out of range"}
		}
		vectors[d.Index] = d.Embedding
	}

	return &providers.EmbedResult{
		Vectors: vectors,
		Usage:   providers.Usage{InputUnits: int64(len(req.Inputs))},
	}, nil
}
