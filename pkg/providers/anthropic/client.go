// Package anthropic implements the chat and vision provider
// interfaces against the Anthropic Messages API. The same wire
// protocol backs both the public endpoint and Vertex-hosted Claude,
// so a single client serves either provider depending on its base
// URL and credentials.
package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// Client talks to an Anthropic-compatible Messages endpoint.
type Client struct {
	*providers.HTTPClient
	baseURL string
}

var (
	_ providers.ChatProvider   = (*Client)(nil)
	_ providers.VisionProvider = (*Client)(nil)
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

type messageContent struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type message struct {
	Role    string           `json:"role"`
	Content []messageContent `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.Config().APIKey,
		"anthropic-version": apiVersion,
		"Content-Type":      "application/json",
	}
}

// Chat sends a text completion request.
func (c *Client) Chat(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResult, error) {
	body := messagesRequest{
		Model:       req.Model,
		System:      req.System,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages: []message{{
			Role:    "user",
			Content: []messageContent{{Type: "text", Text: req.Prompt}},
		}},
	}

	var resp messagesResponse
	if err := c.DoJSON(ctx, http.MethodPost, c.baseURL+"/v1/messages", body, &resp, c.headers()); err != nil {
		return nil, err
	}

	return &providers.ChatResult{
		Content: collectText(resp),
		Usage: providers.Usage{
			InputUnits:  resp.Usage.InputTokens,
			OutputUnits: resp.Usage.OutputTokens,
		},
	}, nil
}

// Vision sends a prompt together with an image.
func (c *Client) Vision(ctx context.Context, req *providers.VisionRequest) (*providers.VisionResult, error) {
	content := []messageContent{{Type: "text", Text: req.Prompt}}
	switch {
	case len(req.ImageData) > 0:
		content = append(content, messageContent{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: req.ImageMediaType,
				Data:      base64.StdEncoding.EncodeToString(req.ImageData),
			},
		})
	case req.ImageURL != "":
		content = append(content, messageContent{
			Type:   "image",
			Source: &imageSource{Type: "url", URL: req.ImageURL},
		})
	default:
		return nil, fmt.Errorf("provider %s: vision request has no image", c.Name())
	}

	body := messagesRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages:  []message{{Role: "user", Content: content}},
	}

	var resp messagesResponse
	if err := c.DoJSON(ctx, http.MethodPost, c.baseURL+"/v1/messages", body, &resp, c.headers()); err != nil {
		return nil, err
	}

	return &providers.VisionResult{
		Content: collectText(resp),
		Usage: providers.Usage{
			InputUnits:  resp.Usage.InputTokens,
			OutputUnits: resp.Usage.OutputTokens,
		},
	}, nil
}

func collectText(resp messagesResponse) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}
