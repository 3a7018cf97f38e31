package ledger

import (
	"context"
	"sync"
)

// MemoryLedger is an in-process ledger guarded by a mutex. Suitable
// for single-instance deployments and tests.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]float64
}

// NewMemoryLedger creates a ledger seeded with initial balances.
func NewMemoryLedger(initial map[string]float64) *MemoryLedger {
	balances := make(map[string]float64, len(initial))
	for k, v := range initial {
		balances[k] = v
	}
	return &MemoryLedger{balances: balances}
}

func (l *MemoryLedger) ChargeIfSufficient(ctx context.Context, tenantID string, amount float64) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[tenantID]
	if !ok {
		return ChargeResult{}, &UnknownTenantError{TenantID: tenantID}
	}
	if balance < amount {
		return ChargeResult{Charged: false, NewBalance: balance}, nil
	}
	balance -= amount
	l.balances[tenantID] = balance
	return ChargeResult{Charged: true, NewBalance: balance}, nil
}

func (l *MemoryLedger) Credit(ctx context.Context, tenantID string, amount float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[tenantID] += amount
	return l.balances[tenantID], nil
}

func (l *MemoryLedger) Balance(ctx context.Context, tenantID string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[tenantID]
	if !ok {
		return 0, &UnknownTenantError{TenantID: tenantID}
	}
	return balance, nil
}

func (l *MemoryLedger) Close() error { return nil }
