// Package ledger manages tenant credit balances. The one operation
// that matters is ChargeIfSufficient: an atomic compare-and-decrement
// that either debits the full amount or leaves the balance untouched.
// Partial debits and read-then-write races are design errors, so every
// backend performs the check and the debit in a single storage-side
// step.
package ledger

import (
	"context"
	"fmt"
)

// ChargeResult reports the outcome of a charge attempt.
type ChargeResult struct {
	// Charged is true when the debit was applied.
	Charged bool

	// NewBalance is the balance after the attempt. When Charged is
	// false it equals the balance that was insufficient.
	NewBalance float64
}

// UnknownTenantError indicates a charge or balance query for a tenant
// without a ledger account.
type UnknownTenantError struct {
	TenantID string
}

func (e *UnknownTenantError) Error() string {
	return fmt.Sprintf("tenant %s has no ledger account", e.TenantID)
}

// Ledger is the credit store. Implementations must make
// ChargeIfSufficient atomic under concurrent callers.
type Ledger interface {
	// ChargeIfSufficient debits amount from the tenant's balance if
	// and only if the full amount is covered. It never applies a
	// partial debit.
	ChargeIfSufficient(ctx context.Context, tenantID string, amount float64) (ChargeResult, error)

	// Credit adds amount to the tenant's balance, creating the
	// account if needed.
	Credit(ctx context.Context, tenantID string, amount float64) (float64, error)

	// Balance returns the tenant's current balance.
	Balance(ctx context.Context, tenantID string) (float64, error)

	// Close releases backend resources.
	Close() error
}
