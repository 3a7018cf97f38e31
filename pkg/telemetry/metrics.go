// Package telemetry provides Prometheus metrics and structured
// logging for the gateway. Metrics take an injected registry so tests
// and embedders can isolate their collectors.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	// RequestsTotal counts mediated requests by modality and outcome.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes end-to-end handling time by modality.
	RequestDuration *prometheus.HistogramVec

	// UnitsBilled counts billable units by provider and modality.
	UnitsBilled *prometheus.CounterVec

	// CreditsCharged sums the credits debited per tenant.
	CreditsCharged *prometheus.CounterVec

	// PIIRedactions counts redacted spans by category.
	PIIRedactions *prometheus.CounterVec

	// FallbacksTotal counts residency fallbacks by original and
	// replacement provider.
	FallbacksTotal *prometheus.CounterVec

	// UnbillableTotal counts completed calls whose charge failed.
	UnbillableTotal prometheus.Counter
}

// NewMetrics creates and registers the gateway collectors. A nil
// registry uses the default one.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Mediated requests by modality and outcome.",
		}, []string{"modality", "outcome"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "End-to-end request handling time.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"modality"}),

		UnitsBilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_units_billed_total",
			Help: "Billable units by provider and modality.",
		}, []string{"provider", "modality"}),

		CreditsCharged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_credits_charged_total",
			Help: "Credits debited per tenant.",
		}, []string{"tenant_id"}),

		PIIRedactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_pii_redactions_total",
			Help: "Redacted prompt spans by category.",
		}, []string{"category"}),

		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_compliance_fallbacks_total",
			Help: "Residency fallbacks by original and replacement provider.",
		}, []string{"from_provider", "to_provider"}),

		UnbillableTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_unbillable_calls_total",
			Help: "Completed provider calls whose charge failed.",
		}),
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	if reg != nil {
		registerer = reg
	}
	registerer.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.UnitsBilled,
		m.CreditsCharged,
		m.PIIRedactions,
		m.FallbacksTotal,
		m.UnbillableTotal,
	)
	return m
}
