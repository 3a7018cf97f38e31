package providers

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrAuth matches authentication failures.
	ErrAuth = errors.New("provider authentication failed")

	// ErrRateLimit matches vendor rate-limit rejections.
	ErrRateLimit = errors.New("provider rate limit exceeded")

	// ErrTransient matches transient network failures and timeouts.
	ErrTransient = errors.New("transient provider network error")

	// ErrVendor matches passthrough vendor faults.
	ErrVendor = errors.New("provider vendor error")
)

// AuthError reports a rejected credential (HTTP 401 or 403).
// It is fatal for the request and never retried.
type AuthError struct {
	// Provider is the adapter that was rejected.
	Provider string

	// Message is the vendor error message.
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// Is implements error matching for errors.Is().
func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// RateLimitError reports a vendor rate-limit rejection (HTTP 429).
// The orchestrator may fail over to an alternative provider.
type RateLimitError struct {
	// Provider is the adapter that was rate limited.
	Provider string

	// RetryAfter is the vendor-suggested wait, if any.
	RetryAfter time.Duration

	// Message is the vendor error message.
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// Is implements error matching for errors.Is().
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimit }

// TransientNetworkError reports a network failure or timeout. The
// HTTPClient retries these exactly once before surfacing them.
type TransientNetworkError struct {
	// Provider is the adapter where the failure occurred.
	Provider string

	// Cause is the underlying network error.
	Cause error
}

// Error implements the error interface.
func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("provider %q transient network error: %v", e.Provider, e.Cause)
}

// Is implements error matching for errors.Is().
func (e *TransientNetworkError) Is(target error) bool { return target == ErrTransient }

// Unwrap returns the underlying network error.
func (e *TransientNetworkError) Unwrap() error { return e.Cause }

// VendorError reports a vendor-side fault that is neither an auth nor
// a rate-limit failure. It is passed through unchanged.
type VendorError struct {
	// Provider is the adapter that returned the fault.
	Provider string

	// StatusCode is the HTTP status code (0 if not applicable).
	StatusCode int

	// Message is the vendor error body.
	Message string
}

// Error implements the error interface.
func (e *VendorError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Is implements error matching for errors.Is().
func (e *VendorError) Is(target error) bool { return target == ErrVendor }

// parseRetryAfter parses a Retry-After header value (delta seconds).
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
