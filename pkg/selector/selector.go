// Package selector decides which provider and model serve a request,
// enforcing tenant residency policy. Selection is a pure function of
// the catalog, the tenant policy, and the request: the same inputs
// always produce the same outcome.
package selector

import (
	"fmt"
	"strings"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/catalog"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/tenant"
)

// ReasonEUOnlyFallback marks an outcome where the requested model was
// replaced because the tenant requires EU processing.
const ReasonEUOnlyFallback = "eu_only_fallback"

// NoCompliantProviderError indicates that no provider in the fallback
// chain offers an EU-compliant model for the requested modality. This
// is a hard failure; the request must not degrade to a non-compliant
// provider.
type NoCompliantProviderError struct {
	TenantID string
	Modality catalog.Modality
	Chain    []string
}

func (e *NoCompliantProviderError) Error() string {
	return fmt.Sprintf("no EU-compliant provider for %s (tenant %s, chain %s)",
		e.Modality, e.TenantID, strings.Join(e.Chain, ","))
}

// Outcome describes a completed selection.
type Outcome struct {
	// Model is the descriptor the request will be served with.
	Model *catalog.ModelDescriptor

	// FallbackApplied is true when the requested model was replaced.
	FallbackApplied bool

	// Reason explains a fallback, empty otherwise.
	Reason string
}

// Selector resolves requests against an immutable catalog.
type Selector struct {
	cat   *catalog.Catalog
	chain []string
}

// New creates a selector. The chain lists EU fallback providers in
// preference order; an empty chain uses the built-in default.
func New(cat *catalog.Catalog, chain []string) *Selector {
	if len(chain) == 0 {
		chain = catalog.DefaultFallbackChain()
	}
	return &Selector{cat: cat, chain: chain}
}

// Select resolves the provider and model for a request. A tenant
// without the EU-only restriction gets exactly what it asked for,
// provided the model exists and supports the modality. An EU-only
// tenant keeps its requested model when that model is already
// EU-compliant, and otherwise falls back through the chain.
func (s *Selector) Select(policy *tenant.Policy, provider, model string, modality catalog.Modality) (*Outcome, error) {
	desc, err := s.cat.Describe(provider, model)
	if err != nil {
		return nil, err
	}
	if !desc.Supports(modality) {
		return nil, &catalog.ModalityNotSupportedError{
			Provider: provider,
			Model:    model,
			Modality: modality,
		}
	}

	if policy == nil || !policy.EUOnly || desc.EUCompliant {
		return &Outcome{Model: desc}, nil
	}

	fallback := s.firstCompliant(modality, nil)
	if fallback == nil {
		return nil, &NoCompliantProviderError{
			TenantID: policy.TenantID,
			Modality: modality,
			Chain:    s.chain,
		}
	}
	return &Outcome{
		Model:           fallback,
		FallbackApplied: true,
		Reason:          ReasonEUOnlyFallback,
	}, nil
}

// Alternatives returns the remaining candidates for a request after
// its provider failed, in deterministic order. For an EU-only tenant
// candidates come from the fallback chain and stay EU-compliant; a
// request without the restriction has no implicit alternatives.
func (s *Selector) Alternatives(policy *tenant.Policy, failed string, modality catalog.Modality) []*catalog.ModelDescriptor {
	if policy == nil || !policy.EUOnly {
		return nil
	}
	var out []*catalog.ModelDescriptor
	skip := map[string]bool{failed: true}
	for _, name := range s.chain {
		if skip[name] {
			continue
		}
		if desc, ok := s.euModel(name, modality); ok {
			out = append(out, desc)
		}
	}
	return out
}

// firstCompliant walks the chain and returns the first EU-compliant
// model supporting the modality, skipping any provider in skip.
func (s *Selector) firstCompliant(modality catalog.Modality, skip map[string]bool) *catalog.ModelDescriptor {
	for _, name := range s.chain {
		if skip[name] {
			continue
		}
		if desc, ok := s.euModel(name, modality); ok {
			return desc
		}
	}
	return nil
}

func (s *Selector) euModel(provider string, modality catalog.Modality) (*catalog.ModelDescriptor, bool) {
	for _, desc := range s.cat.ProviderModels(provider) {
		if desc.EUCompliant && desc.Supports(modality) {
			return desc, true
		}
	}
	return nil, false
}

// Chain returns the configured fallback chain.
func (s *Selector) Chain() []string {
	out := make([]string, len(s.chain))
	copy(out, s.chain)
	return out
}
