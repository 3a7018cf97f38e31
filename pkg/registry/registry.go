// Package registry builds and holds the set of live provider clients.
// The registry is immutable after construction: lookups never mutate
// state, so it is safe for concurrent use without locking.
package registry

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/catalog"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers/anthropic"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers/gemini"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers/openai"
)

// ProviderNotFoundError indicates a lookup for a provider name the
// registry was not built with.
type ProviderNotFoundError struct {
	Provider string
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("provider %s is not registered", e.Provider)
}

// CapabilityError indicates a registered provider whose client does
// not implement the requested capability interface.
type CapabilityError struct {
	Provider string
	Modality catalog.Modality
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("provider %s does not implement %s", e.Provider, e.Modality)
}

// CredentialsSource resolves the API credential for a provider name.
type CredentialsSource interface {
	APIKey(provider string) (string, error)
}

// EnvCredentials reads credentials from environment variables named
// <PREFIX><PROVIDER>_API_KEY, with the provider name upper-cased.
type EnvCredentials struct {
	Prefix string
}

func (e EnvCredentials) APIKey(provider string) (string, error) {
	name := e.Prefix + strings.ToUpper(provider) + "_API_KEY"
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("environment variable %s is not set", name)
	}
	return v, nil
}

// StaticCredentials resolves keys from a fixed map. Used in tests and
// for file-based configuration.
type StaticCredentials map[string]string

func (s StaticCredentials) APIKey(provider string) (string, error) {
	v, ok := s[provider]
	if !ok || v == "" {
		return "", fmt.Errorf("no credential configured for provider %s", provider)
	}
	return v, nil
}

// Registry maps provider names to live clients.
type Registry struct {
	byName map[string]providers.Provider
	names  []string
}

// New builds a registry from already constructed clients. Ownership
// of the clients transfers to the registry; Close releases them all.
func New(clients map[string]providers.Provider) *Registry {
	byName := make(map[string]providers.Provider, len(clients))
	names := make([]string, 0, len(clients))
	for name, p := range clients {
		byName[name] = p
		names = append(names, name)
	}
	return &Registry{byName: byName, names: names}
}

// Build constructs clients for every provider the catalog declares,
// using the wire type recorded per provider configuration. Providers
// whose credentials are missing are skipped with a warning so a
// partially configured deployment still serves the providers it can.
func Build(cat *catalog.Catalog, configs map[string]providers.Config, creds CredentialsSource) (*Registry, error) {
	clients := make(map[string]providers.Provider)
	for _, name := range cat.Providers() {
		cfg, ok := configs[name]
		if !ok {
			return nil, fmt.Errorf("catalog provider %s has no connection configuration", name)
		}
		cfg.Name = name

		if cfg.APIKey == "" {
			key, err := creds.APIKey(name)
			if err != nil {
				slog.Warn("skipping provider without credentials",
					"provider", name,
					"error", err,
				)
				continue
			}
			cfg.APIKey = key
		}

		client, err := newClient(cfg)
		if err != nil {
			closeAll(clients)
			return nil, fmt.Errorf("failed to build provider %s: %w", name, err)
		}
		clients[name] = client
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no providers could be constructed")
	}
	return New(clients), nil
}

func newClient(cfg providers.Config) (providers.Provider, error) {
	switch cfg.Type {
	case "anthropic":
		return anthropic.New(cfg)
	case "openai":
		return openai.New(cfg)
	case "gemini":
		return gemini.New(cfg)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

func closeAll(clients map[string]providers.Provider) {
	for _, p := range clients {
		p.Close()
	}
}

// Has reports whether a provider is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Provider returns the client for a provider name.
func (r *Registry) Provider(name string) (providers.Provider, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, &ProviderNotFoundError{Provider: name}
	}
	return p, nil
}

// Chat returns the chat capability of a provider.
func (r *Registry) Chat(name string) (providers.ChatProvider, error) {
	p, err := r.Provider(name)
	if err != nil {
		return nil, err
	}
	c, ok := p.(providers.ChatProvider)
	if !ok {
		return nil, &CapabilityError{Provider: name, Modality: catalog.ModalityChat}
	}
	return c, nil
}

// Vision returns the vision capability of a provider.
func (r *Registry) Vision(name string) (providers.VisionProvider, error) {
	p, err := r.Provider(name)
	if err != nil {
		return nil, err
	}
	v, ok := p.(providers.VisionProvider)
	if !ok {
		return nil, &CapabilityError{Provider: name, Modality: catalog.ModalityVision}
	}
	return v, nil
}

// Audio returns the transcription capability of a provider.
func (r *Registry) Audio(name string) (providers.AudioProvider, error) {
	p, err := r.Provider(name)
	if err != nil {
		return nil, err
	}
	a, ok := p.(providers.AudioProvider)
	if !ok {
		return nil, &CapabilityError{Provider: name, Modality: catalog.ModalityAudio}
	}
	return a, nil
}

// Embedding returns the embedding capability of a provider.
func (r *Registry) Embedding(name string) (providers.EmbeddingProvider, error) {
	p, err := r.Provider(name)
	if err != nil {
		return nil, err
	}
	e, ok := p.(providers.EmbeddingProvider)
	if !ok {
		return nil, &CapabilityError{Provider: name, Modality: catalog.ModalityEmbedding}
	}
	return e, nil
}

// Close releases every provider client.
func (r *Registry) Close() error {
	var firstErr error
	for _, p := range r.byName {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
