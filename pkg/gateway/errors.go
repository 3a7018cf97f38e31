package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/catalog"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/ledger"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/redact"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/registry"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/selector"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/tenant"
)

// ValidationError rejects a malformed request before any downstream
// work happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Message)
}

// InsufficientCreditsError rejects or flags a request the tenant
// cannot pay for. Preflight distinguishes the cheap early rejection
// from the post-call case where the provider was already invoked and
// the work is unbillable.
type InsufficientCreditsError struct {
	TenantID  string
	Required  float64
	Available float64
	Preflight bool
}

func (e *InsufficientCreditsError) Error() string {
	stage := "post-call"
	if e.Preflight {
		stage = "pre-flight"
	}
	return fmt.Sprintf("tenant %s has insufficient credits (%s): required %.6f, available %.6f",
		e.TenantID, stage, e.Required, e.Available)
}

// PromptRejectedError rejects a request whose prompt could not be
// sanitized under the fail-closed redaction policy.
type PromptRejectedError struct {
	Cause error
}

func (e *PromptRejectedError) Error() string {
	return fmt.Sprintf("prompt rejected: redaction unavailable: %v", e.Cause)
}

func (e *PromptRejectedError) Unwrap() error { return e.Cause }

// Error categories for metrics labels and transport status mapping.
const (
	CategoryValidation        = "validation"
	CategoryUnknownTenant     = "unknown_tenant"
	CategoryUnknownModel      = "unknown_model"
	CategoryCompliance        = "compliance"
	CategoryCredits           = "credits"
	CategoryPromptRejected    = "prompt_rejected"
	CategoryProviderAuth      = "provider_auth"
	CategoryProviderRateLimit = "provider_rate_limit"
	CategoryProviderTransient = "provider_transient"
	CategoryProviderVendor    = "provider_vendor"
	CategoryCanceled          = "canceled"
	CategoryInternal          = "internal"
)

// Category maps an error to its taxonomy bucket. Unknown errors fall
// into the internal bucket so a new failure mode never goes
// unlabeled.
func Category(err error) string {
	var (
		validationErr   *ValidationError
		notFoundErr     *tenant.NotFoundError
		unknownModelErr *catalog.UnknownModelError
		modalityErr     *catalog.ModalityNotSupportedError
		providerErr     *registry.ProviderNotFoundError
		capabilityErr   *registry.CapabilityError
		complianceErr   *selector.NoCompliantProviderError
		creditsErr      *InsufficientCreditsError
		promptErr       *PromptRejectedError
		ledgerErr       *ledger.UnknownTenantError
	)
	switch {
	case errors.As(err, &validationErr):
		return CategoryValidation
	case errors.As(err, &notFoundErr), errors.As(err, &ledgerErr):
		return CategoryUnknownTenant
	case errors.As(err, &unknownModelErr),
		errors.As(err, &modalityErr),
		errors.As(err, &providerErr),
		errors.As(err, &capabilityErr):
		return CategoryUnknownModel
	case errors.As(err, &complianceErr):
		return CategoryCompliance
	case errors.As(err, &creditsErr):
		return CategoryCredits
	case errors.As(err, &promptErr), errors.Is(err, redact.ErrMatcherFault):
		return CategoryPromptRejected
	case errors.Is(err, providers.ErrAuth):
		return CategoryProviderAuth
	case errors.Is(err, providers.ErrRateLimit):
		return CategoryProviderRateLimit
	case errors.Is(err, providers.ErrTransient):
		return CategoryProviderTransient
	case errors.Is(err, providers.ErrVendor):
		return CategoryProviderVendor
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryCanceled
	default:
		return CategoryInternal
	}
}
