// Package gateway orchestrates mediated requests: tenant resolution,
// prompt redaction, compliance-aware provider selection, the provider
// call itself, and the post-call charge and audit. The charge path is
// detached from caller cancellation so a completed provider call is
// always billed exactly once.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/audit"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/catalog"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/ledger"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/redact"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/registry"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/selector"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/telemetry"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/tenant"
)

// Options wires the gateway's dependencies.
type Options struct {
	Redactor *redact.Engine
	Catalog  *catalog.Catalog
	Selector *selector.Selector
	Registry *registry.Registry
	Ledger   ledger.Ledger
	Tenants  tenant.Store
	Recorder *audit.Recorder
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
}

// Gateway mediates requests between tenants and providers.
type Gateway struct {
	redactor *redact.Engine
	cat      *catalog.Catalog
	sel      *selector.Selector
	reg      *registry.Registry
	credits  ledger.Ledger
	tenants  tenant.Store
	recorder *audit.Recorder
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// New creates a gateway. All options except Recorder, Metrics, and
// Logger are required.
func New(opts Options) (*Gateway, error) {
	switch {
	case opts.Redactor == nil:
		return nil, errors.New("gateway: redactor is required")
	case opts.Catalog == nil:
		return nil, errors.New("gateway: catalog is required")
	case opts.Selector == nil:
		return nil, errors.New("gateway: selector is required")
	case opts.Registry == nil:
		return nil, errors.New("gateway: registry is required")
	case opts.Ledger == nil:
		return nil, errors.New("gateway: ledger is required")
	case opts.Tenants == nil:
		return nil, errors.New("gateway: tenant store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		redactor: opts.Redactor,
		cat:      opts.Catalog,
		sel:      opts.Selector,
		reg:      opts.Registry,
		credits:  opts.Ledger,
		tenants:  opts.Tenants,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		logger:   logger,
	}, nil
}

// ResultMeta describes how a request was served.
type ResultMeta struct {
	// RequestID correlates the response with logs and audit records.
	RequestID string `json:"request_id"`

	// Provider and Model identify what actually served the request.
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// FallbackApplied and Reason report a residency fallback.
	FallbackApplied bool   `json:"fallback_applied"`
	Reason          string `json:"reason,omitempty"`

	// EUCompliant reports whether the serving model is EU resident.
	EUCompliant bool `json:"eu_compliant"`

	// PIIRedacted counts the spans removed from the prompt.
	PIIRedacted int `json:"pii_redacted"`

	// Usage holds the provider-reported billable units.
	Usage providers.Usage `json:"usage"`

	// Cost is the credits charged.
	Cost float64 `json:"cost"`
}

// callFunc performs the provider call for one resolved model and
// returns the billable usage.
type callFunc func(ctx context.Context, desc *catalog.ModelDescriptor) (providers.Usage, error)

// mediation carries everything the shared pipeline needs beyond the
// call itself.
type mediation struct {
	tenantID string
	provider string
	model    string
	modality catalog.Modality

	// piiMatches are the spans found while sanitizing the request.
	piiMatches []redact.Match

	// estimate computes the pre-flight cost ceiling for a candidate
	// model.
	estimate func(desc *catalog.ModelDescriptor) float64

	call callFunc
}

// mediate runs the shared pipeline and returns the result metadata.
func (g *Gateway) mediate(ctx context.Context, m *mediation) (*ResultMeta, error) {
	started := time.Now()
	meta := &ResultMeta{
		RequestID:   uuid.NewString(),
		PIIRedacted: len(m.piiMatches),
	}

	logger := g.logger.With(
		"request_id", meta.RequestID,
		"tenant_id", m.tenantID,
		"modality", m.modality,
	)

	outcome, err := g.pipeline(ctx, m, meta, logger)
	g.observe(m, meta, outcome, time.Since(started))
	if err != nil {
		logger.Warn("request failed", "outcome", outcome, "category", Category(err), "error", err)
		return meta, err
	}
	logger.Info("request served",
		"provider", meta.Provider,
		"model", meta.Model,
		"fallback_applied", meta.FallbackApplied,
		"cost", meta.Cost,
	)
	return meta, nil
}

func (g *Gateway) pipeline(ctx context.Context, m *mediation, meta *ResultMeta, logger *slog.Logger) (string, error) {
	policy, err := g.tenants.Policy(ctx, m.tenantID)
	if err != nil {
		return audit.OutcomeRejectedCompliance, err
	}

	sel, err := g.sel.Select(policy, m.provider, m.model, m.modality)
	if err != nil {
		var noCompliant *selector.NoCompliantProviderError
		if errors.As(err, &noCompliant) {
			return audit.OutcomeRejectedCompliance, err
		}
		return audit.OutcomeProviderError, err
	}
	desc := sel.Model
	meta.Provider = desc.Provider
	meta.Model = desc.ModelID
	meta.FallbackApplied = sel.FallbackApplied
	meta.Reason = sel.Reason
	meta.EUCompliant = desc.EUCompliant
	if sel.FallbackApplied {
		logger.Info("residency fallback applied",
			"requested_provider", m.provider,
			"selected_provider", desc.Provider,
			"reason", sel.Reason,
		)
		if g.metrics != nil {
			g.metrics.FallbacksTotal.WithLabelValues(m.provider, desc.Provider).Inc()
		}
	}

	estimate := m.estimate(desc)
	balance, err := g.credits.Balance(ctx, m.tenantID)
	if err != nil {
		return audit.OutcomeRejectedCredits, err
	}
	if balance < estimate {
		return audit.OutcomeRejectedCredits, &InsufficientCreditsError{
			TenantID:  m.tenantID,
			Required:  estimate,
			Available: balance,
			Preflight: true,
		}
	}

	usage, served, err := g.invoke(ctx, policy, desc, m)
	if err != nil {
		return audit.OutcomeProviderError, err
	}
	if served != desc {
		meta.Provider = served.Provider
		meta.Model = served.ModelID
		meta.FallbackApplied = true
		meta.EUCompliant = served.EUCompliant
		if meta.Reason == "" {
			meta.Reason = selector.ReasonEUOnlyFallback
		}
	}
	meta.Usage = usage

	cost := ledger.Cost(served, usage)
	charge, err := g.credits.ChargeIfSufficient(context.WithoutCancel(ctx), m.tenantID, cost)
	if err != nil {
		return audit.OutcomeUnbillable, err
	}
	if !charge.Charged {
		if g.metrics != nil {
			g.metrics.UnbillableTotal.Inc()
		}
		return audit.OutcomeUnbillable, &InsufficientCreditsError{
			TenantID:  m.tenantID,
			Required:  cost,
			Available: charge.NewBalance,
			Preflight: false,
		}
	}
	meta.Cost = cost
	return audit.OutcomeSuccess, nil
}

// invoke performs the provider call with the model's timeout. When
// the provider is rate limited and the tenant's policy admits
// alternatives, exactly one failover is attempted.
func (g *Gateway) invoke(ctx context.Context, policy *tenant.Policy, desc *catalog.ModelDescriptor, m *mediation) (providers.Usage, *catalog.ModelDescriptor, error) {
	usage, err := g.callWithTimeout(ctx, desc, m.call)
	if err == nil {
		return usage, desc, nil
	}
	if !errors.Is(err, providers.ErrRateLimit) {
		return providers.Usage{}, desc, err
	}

	alts := g.sel.Alternatives(policy, desc.Provider, m.modality)
	if len(alts) == 0 {
		return providers.Usage{}, desc, err
	}
	alt := alts[0]
	g.logger.Info("failing over rate limited provider",
		"from_provider", desc.Provider,
		"to_provider", alt.Provider,
	)

	usage, altErr := g.callWithTimeout(ctx, alt, m.call)
	if altErr != nil {
		// Surface the original rate limit, not the failover error.
		return providers.Usage{}, desc, err
	}
	return usage, alt, nil
}

// callWithTimeout runs the call under the model's timeout. A started
// call is detached from caller cancellation and runs to completion,
// so an incurred vendor cost is always followed by the charge; only
// the per-model timeout bounds the call.
func (g *Gateway) callWithTimeout(ctx context.Context, desc *catalog.ModelDescriptor, call callFunc) (providers.Usage, error) {
	callCtx := context.WithoutCancel(ctx)
	if desc.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, desc.Timeout)
		defer cancel()
	}
	return call(callCtx, desc)
}

// observe records the audit entry and metrics for a finished request.
// It runs on every path, success or failure, and never blocks.
func (g *Gateway) observe(m *mediation, meta *ResultMeta, outcome string, duration time.Duration) {
	if g.metrics != nil {
		g.metrics.RequestsTotal.WithLabelValues(string(m.modality), outcome).Inc()
		g.metrics.RequestDuration.WithLabelValues(string(m.modality)).Observe(duration.Seconds())
		for _, match := range m.piiMatches {
			g.metrics.PIIRedactions.WithLabelValues(string(match.Category)).Inc()
		}
		if outcome == audit.OutcomeSuccess {
			g.metrics.UnitsBilled.WithLabelValues(meta.Provider, string(m.modality)).Add(float64(meta.Usage.Total()))
			g.metrics.CreditsCharged.WithLabelValues(m.tenantID).Add(meta.Cost)
		}
	}

	if g.recorder == nil {
		return
	}
	record := audit.NewRecord()
	record.RequestID = meta.RequestID
	record.TenantID = m.tenantID
	record.Provider = meta.Provider
	record.Model = meta.Model
	record.Modality = string(m.modality)
	record.Outcome = outcome
	record.FallbackApplied = meta.FallbackApplied
	record.PIIRedacted = meta.PIIRedacted
	record.InputUnits = meta.Usage.InputUnits
	record.OutputUnits = meta.Usage.OutputUnits
	record.Cost = meta.Cost
	record.Duration = duration
	g.recorder.Record(record)
}

// sanitize runs one text through the redaction engine and appends the
// found spans to matches.
func (g *Gateway) sanitize(text string, matches *[]redact.Match) (string, error) {
	if text == "" {
		return "", nil
	}
	res, err := g.redactor.Redact(text)
	if err != nil {
		return "", &PromptRejectedError{Cause: err}
	}
	*matches = append(*matches, res.Matches...)
	return res.Sanitized, nil
}
