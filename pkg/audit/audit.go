// Package audit records the billing outcome of every mediated
// request. Records are written asynchronously so the request path
// never blocks on audit storage, but the recorder drains its queue on
// shutdown so no outcome is lost in normal operation.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Request outcomes. Unbillable marks a completed provider call whose
// charge failed after the fact; it exists so operators can spot
// revenue leakage.
const (
	OutcomeSuccess            = "success"
	OutcomeRejectedPII        = "rejected_pii"
	OutcomeRejectedCompliance = "rejected_compliance"
	OutcomeRejectedCredits    = "rejected_credits"
	OutcomeProviderError      = "provider_error"
	OutcomeUnbillable         = "unbillable"
)

// UsageRecord is one audit entry.
type UsageRecord struct {
	// ID is a unique record identifier.
	ID string `json:"id"`

	// RequestID correlates the record with request logs.
	RequestID string `json:"request_id"`

	// TenantID identifies the paying tenant.
	TenantID string `json:"tenant_id"`

	// Provider and Model identify what actually served the request,
	// after any fallback.
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Modality is the request type: chat, vision, audio, embedding.
	Modality string `json:"modality"`

	// Outcome is one of the Outcome constants.
	Outcome string `json:"outcome"`

	// FallbackApplied is true when residency policy replaced the
	// requested model.
	FallbackApplied bool `json:"fallback_applied"`

	// PIIRedacted counts the spans removed from the prompt.
	PIIRedacted int `json:"pii_redacted"`

	// InputUnits and OutputUnits are the billable units reported by
	// the provider.
	InputUnits  int64 `json:"input_units"`
	OutputUnits int64 `json:"output_units"`

	// Cost is the credits charged, zero for rejected requests.
	Cost float64 `json:"cost"`

	// Duration is the end-to-end handling time.
	Duration time.Duration `json:"duration"`

	// CreatedAt is the record timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord creates a record with a fresh ID and timestamp.
func NewRecord() *UsageRecord {
	return &UsageRecord{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Sink persists usage records.
type Sink interface {
	Write(record *UsageRecord) error
	Close() error
}
