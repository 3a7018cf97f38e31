package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
)

// chatOnly implements Provider and ChatProvider but nothing else.
type chatOnly struct {
	name string
}

func (f *chatOnly) Name() string { return f.name }
func (f *chatOnly) Type() string { return "test" }
func (f *chatOnly) Close() error { return nil }
func (f *chatOnly) Chat(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResult, error) {
	return &providers.ChatResult{Content: "ok"}, nil
}

func TestProviderLookup(t *testing.T) {
	r := New(map[string]providers.Provider{
		"anthropic": &chatOnly{name: "anthropic"},
	})

	if !r.Has("anthropic") {
		t.Error("Has(anthropic) = false, want true")
	}
	if r.Has("openai") {
		t.Error("Has(openai) = true, want false")
	}

	p, err := r.Provider("anthropic")
	if err != nil {
		t.Fatalf("Provider() error = %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("name = %q", p.Name())
	}
}

func TestProviderNotFound(t *testing.T) {
	r := New(map[string]providers.Provider{})

	_, err := r.Provider("missing")
	var notFound *ProviderNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error type = %T, want *ProviderNotFoundError", err)
	}
	if notFound.Provider != "missing" {
		t.Errorf("provider = %q", notFound.Provider)
	}
}

func TestCapabilityErrors(t *testing.T) {
	r := New(map[string]providers.Provider{
		"anthropic": &chatOnly{name: "anthropic"},
	})

	if _, err := r.Chat("anthropic"); err != nil {
		t.Errorf("Chat() error = %v, want nil", err)
	}

	_, err := r.Audio("anthropic")
	var capErr *CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("error type = %T, want *CapabilityError", err)
	}
	if capErr.Provider != "anthropic" || capErr.Modality != "audio" {
		t.Errorf("capability error = %+v", capErr)
	}

	if _, err := r.Embedding("anthropic"); err == nil {
		t.Error("Embedding() error = nil, want *CapabilityError")
	}
	if _, err := r.Vision("anthropic"); err == nil {
		t.Error("Vision() error = nil, want *CapabilityError")
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("GATEWAY_SCALEWAY_API_KEY", "secret")

	creds := EnvCredentials{Prefix: "GATEWAY_"}
	key, err := creds.APIKey("scaleway")
	if err != nil {
		t.Fatalf("APIKey() error = %v", err)
	}
	if key != "secret" {
		t.Errorf("key = %q", key)
	}

	if _, err := creds.APIKey("unset_provider"); err == nil {
		t.Error("APIKey() error = nil for unset variable, want error")
	}
}

func TestStaticCredentials(t *testing.T) {
	creds := StaticCredentials{"openai": "sk-test"}

	key, err := creds.APIKey("openai")
	if err != nil || key != "sk-test" {
		t.Errorf("APIKey(openai) = %q, %v", key, err)
	}
	if _, err := creds.APIKey("anthropic"); err == nil {
		t.Error("APIKey(anthropic) error = nil, want error")
	}
}
