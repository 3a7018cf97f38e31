package providers

import (
	"context"
	"time"
)

// Usage is the normalized billable unit count for one provider call.
// The unit depends on the modality: tokens for chat and vision, items
// for embeddings, seconds of audio for transcription.
type Usage struct {
	// InputUnits counts the units consumed by the request side
	// (prompt tokens, embedded items, audio seconds).
	InputUnits int64 `json:"input_units"`

	// OutputUnits counts the units produced by the provider
	// (completion tokens; zero for embeddings and transcription).
	OutputUnits int64 `json:"output_units"`
}

// Total returns input plus output units.
func (u Usage) Total() int64 { return u.InputUnits + u.OutputUnits }

// ChatRequest is a normalized text-generation request. The text is
// expected to be redacted before it reaches an adapter.
type ChatRequest struct {
	// Model is the resolved provider-side model identifier.
	Model string

	// System is an optional system prompt.
	System string

	// Prompt is the user prompt.
	Prompt string

	// MaxTokens caps the generated tokens. Zero means the adapter
	// default.
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float64
}

// ChatResult is a normalized text-generation response.
type ChatResult struct {
	// Content is the generated text.
	Content string

	// Usage holds the normalized token counts.
	Usage Usage
}

// VisionRequest is a normalized image-understanding request.
type VisionRequest struct {
	// Model is the resolved provider-side model identifier.
	Model string

	// Prompt is the instruction accompanying the image.
	Prompt string

	// ImageURL references a remotely hosted image. Either ImageURL
	// or ImageData must be set.
	ImageURL string

	// ImageData is raw image bytes, sent base64-encoded.
	ImageData []byte

	// ImageMediaType is the MIME type for ImageData (e.g. "image/png").
	ImageMediaType string

	// MaxTokens caps the generated tokens.
	MaxTokens int
}

// VisionResult is a normalized image-understanding response.
type VisionResult struct {
	// Content is the generated text.
	Content string

	// Usage holds the normalized token counts.
	Usage Usage
}

// AudioRequest is a normalized transcription request.
type AudioRequest struct {
	// Model is the resolved provider-side model identifier.
	Model string

	// Audio is the raw audio payload.
	Audio []byte

	// Format is the audio container format (e.g. "mp3", "wav").
	Format string

	// DurationSeconds is the caller-declared audio duration, used
	// for billing when the vendor does not report one.
	DurationSeconds float64

	// Language is an optional BCP-47 language hint.
	Language string
}

// AudioResult is a normalized transcription response.
type AudioResult struct {
	// Transcript is the recognized text.
	Transcript string

	// Usage holds the billed audio seconds in InputUnits.
	Usage Usage
}

// EmbedRequest is a normalized embedding request.
type EmbedRequest struct {
	// Model is the resolved provider-side model identifier.
	Model string

	// Inputs are the texts to embed.
	Inputs []string
}

// EmbedResult is a normalized embedding response.
type EmbedResult struct {
	// Vectors holds one embedding per input, in input order.
	Vectors [][]float32

	// Usage holds the billed item count in InputUnits.
	Usage Usage
}

// Provider is the base interface every vendor adapter implements.
// Adapters are immutable after construction and safe for concurrent
// use.
type Provider interface {
	// Name returns the logical provider name the adapter was
	// registered under (e.g. "anthropic", "vertex_claude").
	Name() string

	// Type returns the wire protocol family (e.g. "anthropic",
	// "openai", "gemini").
	Type() string

	// Close releases pooled connections. The adapter must not be
	// used afterwards.
	Close() error
}

// ChatProvider is implemented by adapters that support text generation.
type ChatProvider interface {
	Provider

	// Chat sends a text-generation request and returns the
	// normalized result.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)
}

// VisionProvider is implemented by adapters that support image inputs.
type VisionProvider interface {
	Provider

	// Vision sends an image-understanding request and returns the
	// normalized result.
	Vision(ctx context.Context, req *VisionRequest) (*VisionResult, error)
}

// AudioProvider is implemented by adapters that support transcription.
type AudioProvider interface {
	Provider

	// Transcribe sends an audio transcription request and returns
	// the normalized result.
	Transcribe(ctx context.Context, req *AudioRequest) (*AudioResult, error)
}

// EmbeddingProvider is implemented by adapters that support embeddings.
type EmbeddingProvider interface {
	Provider

	// Embed sends an embedding request and returns one vector per
	// input.
	Embed(ctx context.Context, req *EmbedRequest) (*EmbedResult, error)
}

// Config is the immutable connection configuration for one adapter
// instance.
type Config struct {
	// Name is the logical provider name (registry key).
	Name string

	// Type is the wire protocol family.
	Type string

	// APIKey is the vendor credential.
	APIKey string

	// BaseURL is the vendor API endpoint base.
	BaseURL string

	// Timeout is the per-attempt HTTP timeout. The per-call
	// deadline from the model descriptor is applied by the caller
	// through the context.
	Timeout time.Duration

	// MaxIdleConns bounds the connection pool.
	MaxIdleConns int

	// MaxIdleConnsPerHost bounds per-host idle connections.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept.
	IdleConnTimeout time.Duration

	// RetryBackoff is the wait before the single transient retry.
	RetryBackoff time.Duration
}
