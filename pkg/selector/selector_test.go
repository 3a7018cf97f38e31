package selector

import (
	"errors"
	"testing"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/catalog"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/tenant"
)

func newSelector(t *testing.T) *Selector {
	t.Helper()
	return New(catalog.Default(), nil)
}

func TestSelectUnrestrictedTenant(t *testing.T) {
	s := newSelector(t)
	policy := &tenant.Policy{TenantID: "acme"}

	out, err := s.Select(policy, "openai", "gpt-4o", catalog.ModalityChat)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if out.Model.Provider != "openai" || out.Model.ModelID != "gpt-4o" {
		t.Errorf("selected %s/%s, want requested model", out.Model.Provider, out.Model.ModelID)
	}
	if out.FallbackApplied {
		t.Error("FallbackApplied = true, want false")
	}
	if out.Reason != "" {
		t.Errorf("Reason = %q, want empty", out.Reason)
	}
}

func TestSelectNilPolicy(t *testing.T) {
	s := newSelector(t)

	out, err := s.Select(nil, "anthropic", "claude-sonnet-4-20250514", catalog.ModalityChat)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if out.FallbackApplied {
		t.Error("FallbackApplied = true, want false")
	}
}

func TestSelectEUOnlyFallback(t *testing.T) {
	s := newSelector(t)
	policy := &tenant.Policy{TenantID: "acme", EUOnly: true}

	out, err := s.Select(policy, "openai", "gpt-4o", catalog.ModalityChat)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if !out.FallbackApplied {
		t.Fatal("FallbackApplied = false, want true")
	}
	if out.Reason != ReasonEUOnlyFallback {
		t.Errorf("Reason = %q, want %q", out.Reason, ReasonEUOnlyFallback)
	}
	// vertex_claude heads the chain and serves chat.
	if out.Model.Provider != "vertex_claude" {
		t.Errorf("provider = %q, want vertex_claude", out.Model.Provider)
	}
	if !out.Model.EUCompliant {
		t.Error("fallback model is not EU-compliant")
	}
}

func TestSelectEUOnlyKeepsCompliantModel(t *testing.T) {
	s := newSelector(t)
	policy := &tenant.Policy{TenantID: "acme", EUOnly: true}

	out, err := s.Select(policy, "scaleway", "llama-3.3-70b-instruct", catalog.ModalityChat)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if out.FallbackApplied {
		t.Error("FallbackApplied = true for an already compliant model")
	}
	if out.Model.Provider != "scaleway" {
		t.Errorf("provider = %q, want scaleway", out.Model.Provider)
	}
}

func TestSelectDeterministic(t *testing.T) {
	s := newSelector(t)
	policy := &tenant.Policy{TenantID: "acme", EUOnly: true}

	first, err := s.Select(policy, "openai", "gpt-4o", catalog.ModalityVision)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		out, err := s.Select(policy, "openai", "gpt-4o", catalog.ModalityVision)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if out.Model.Provider != first.Model.Provider || out.Model.ModelID != first.Model.ModelID {
			t.Fatalf("selection changed on iteration %d: %s/%s vs %s/%s",
				i, out.Model.Provider, out.Model.ModelID, first.Model.Provider, first.Model.ModelID)
		}
	}
}

func TestSelectFallbackRespectsModality(t *testing.T) {
	s := newSelector(t)
	policy := &tenant.Policy{TenantID: "acme", EUOnly: true}

	// vertex_claude has no audio model, so the chain must land on
	// scaleway for transcription.
	out, err := s.Select(policy, "openai", "whisper-1", catalog.ModalityAudio)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if !out.FallbackApplied {
		t.Fatal("FallbackApplied = false, want true")
	}
	if out.Model.Provider != "scaleway" {
		t.Errorf("provider = %q, want scaleway", out.Model.Provider)
	}
	if !out.Model.Supports(catalog.ModalityAudio) {
		t.Error("fallback model does not support audio")
	}
}

func TestSelectNoCompliantProvider(t *testing.T) {
	cat, err := catalog.New([]catalog.ModelDescriptor{
		{
			Provider:   "openai",
			ModelID:    "gpt-4o",
			Modalities: []catalog.Modality{catalog.ModalityChat},
			Region:     "us-east-1",
		},
	})
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	s := New(cat, []string{"vertex_claude", "scaleway"})
	policy := &tenant.Policy{TenantID: "acme", EUOnly: true}

	_, err = s.Select(policy, "openai", "gpt-4o", catalog.ModalityChat)
	var noCompliant *NoCompliantProviderError
	if !errors.As(err, &noCompliant) {
		t.Fatalf("error = %v, want *NoCompliantProviderError", err)
	}
	if noCompliant.TenantID != "acme" || noCompliant.Modality != catalog.ModalityChat {
		t.Errorf("error fields = %+v", noCompliant)
	}
}

func TestSelectUnknownModel(t *testing.T) {
	s := newSelector(t)

	_, err := s.Select(nil, "openai", "no-such-model", catalog.ModalityChat)
	var unknown *catalog.UnknownModelError
	if !errors.As(err, &unknown) {
		t.Fatalf("error type = %T, want *catalog.UnknownModelError", err)
	}
}

func TestSelectModalityNotSupported(t *testing.T) {
	s := newSelector(t)

	_, err := s.Select(nil, "openai", "whisper-1", catalog.ModalityChat)
	var notSupported *catalog.ModalityNotSupportedError
	if !errors.As(err, &notSupported) {
		t.Fatalf("error type = %T, want *catalog.ModalityNotSupportedError", err)
	}
}

func TestAlternativesSkipFailedProvider(t *testing.T) {
	s := newSelector(t)
	policy := &tenant.Policy{TenantID: "acme", EUOnly: true}

	alts := s.Alternatives(policy, "vertex_claude", catalog.ModalityChat)
	if len(alts) == 0 {
		t.Fatal("Alternatives() = empty, want remaining chain")
	}
	for _, alt := range alts {
		if alt.Provider == "vertex_claude" {
			t.Error("failed provider reappears in alternatives")
		}
		if !alt.EUCompliant {
			t.Errorf("non-compliant alternative %s", alt.Provider)
		}
	}
	if alts[0].Provider != "scaleway" {
		t.Errorf("first alternative = %q, want scaleway", alts[0].Provider)
	}
}

func TestAlternativesUnrestrictedTenant(t *testing.T) {
	s := newSelector(t)

	if alts := s.Alternatives(&tenant.Policy{TenantID: "acme"}, "openai", catalog.ModalityChat); alts != nil {
		t.Errorf("Alternatives() = %v, want nil for unrestricted tenant", alts)
	}
}
