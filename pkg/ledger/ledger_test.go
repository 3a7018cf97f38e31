package ledger

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/catalog"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/providers"
)

func testDescriptor() *catalog.ModelDescriptor {
	return &catalog.ModelDescriptor{
		Provider:        "test",
		ModelID:         "test-model",
		MaxOutputTokens: 4096,
		Cost:            catalog.CostParams{BaseCost: 0.01, PerUnitRate: 0.0001},
	}
}

func usage(in, out int64) providers.Usage {
	return providers.Usage{InputUnits: in, OutputUnits: out}
}

func newLedgers(t *testing.T, initial map[string]float64) map[string]Ledger {
	t.Helper()

	sqlitePath := filepath.Join(t.TempDir(), "ledger.db")
	sqliteLedger, err := NewSQLiteLedger(sqlitePath)
	require.NoError(t, err)
	t.Cleanup(func() { sqliteLedger.Close() })

	ctx := context.Background()
	for tenantID, balance := range initial {
		_, err := sqliteLedger.Credit(ctx, tenantID, balance)
		require.NoError(t, err)
	}

	return map[string]Ledger{
		"memory": NewMemoryLedger(initial),
		"sqlite": sqliteLedger,
	}
}

func TestChargeIfSufficient(t *testing.T) {
	for name, l := range newLedgers(t, map[string]float64{"acme": 100}) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			res, err := l.ChargeIfSufficient(ctx, "acme", 30)
			require.NoError(t, err)
			assert.True(t, res.Charged)
			assert.InDelta(t, 70, res.NewBalance, 1e-9)

			res, err = l.ChargeIfSufficient(ctx, "acme", 80)
			require.NoError(t, err)
			assert.False(t, res.Charged, "overdraft must be rejected")
			assert.InDelta(t, 70, res.NewBalance, 1e-9, "rejection must not move the balance")

			balance, err := l.Balance(ctx, "acme")
			require.NoError(t, err)
			assert.InDelta(t, 70, balance, 1e-9)
		})
	}
}

func TestChargeExactBalance(t *testing.T) {
	for name, l := range newLedgers(t, map[string]float64{"acme": 50}) {
		t.Run(name, func(t *testing.T) {
			res, err := l.ChargeIfSufficient(context.Background(), "acme", 50)
			require.NoError(t, err)
			assert.True(t, res.Charged, "charge equal to balance must succeed")
			assert.InDelta(t, 0, res.NewBalance, 1e-9)
		})
	}
}

func TestChargeUnknownTenant(t *testing.T) {
	for name, l := range newLedgers(t, nil) {
		t.Run(name, func(t *testing.T) {
			_, err := l.ChargeIfSufficient(context.Background(), "ghost", 10)
			var unknown *UnknownTenantError
			require.ErrorAs(t, err, &unknown)
			assert.Equal(t, "ghost", unknown.TenantID)
		})
	}
}

func TestCredit(t *testing.T) {
	for name, l := range newLedgers(t, nil) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			balance, err := l.Credit(ctx, "new-tenant", 25)
			require.NoError(t, err)
			assert.InDelta(t, 25, balance, 1e-9)

			balance, err = l.Credit(ctx, "new-tenant", 10)
			require.NoError(t, err)
			assert.InDelta(t, 35, balance, 1e-9)
		})
	}
}

// Concurrent charges against one account must admit exactly
// floor(balance/amount) of them, with no partial debits.
func TestConcurrentChargesNeverOverdraw(t *testing.T) {
	const (
		initial = 100.0
		amount  = 7.0
		workers = 50
	)
	wantCharged := int64(math.Floor(initial / amount)) // 14

	for name, l := range newLedgers(t, map[string]float64{"acme": initial}) {
		t.Run(name, func(t *testing.T) {
			var charged int64
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := l.ChargeIfSufficient(context.Background(), "acme", amount)
					if err != nil {
						t.Errorf("ChargeIfSufficient() error = %v", err)
						return
					}
					if res.Charged {
						atomic.AddInt64(&charged, 1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, wantCharged, atomic.LoadInt64(&charged))

			balance, err := l.Balance(context.Background(), "acme")
			require.NoError(t, err)
			assert.InDelta(t, initial-float64(wantCharged)*amount, balance, 1e-6)
		})
	}
}

func TestCostComputation(t *testing.T) {
	desc := testDescriptor()

	cost := Cost(desc, usage(1000, 200))
	assert.InDelta(t, 0.01+0.0001*1200, cost, 1e-9)

	zero := Cost(desc, usage(0, 0))
	assert.InDelta(t, 0.01, zero, 1e-9, "base cost applies even at zero units")
}

func TestEstimate(t *testing.T) {
	desc := testDescriptor()

	// Chat: prompt length / 4 + requested output cap.
	est := Estimate(desc, "chat", 400, 100, 0, 0)
	assert.InDelta(t, 0.01+0.0001*200, est, 1e-9)

	// Chat without a cap assumes the model maximum.
	est = Estimate(desc, "chat", 0, 0, 0, 0)
	assert.InDelta(t, 0.01+0.0001*float64(desc.MaxOutputTokens), est, 1e-9)

	// Embeddings bill per item.
	est = Estimate(desc, "embedding", 0, 0, 5, 0)
	assert.InDelta(t, 0.01+0.0001*5, est, 1e-9)

	// Audio bills whole seconds, rounded up.
	est = Estimate(desc, "audio", 0, 0, 0, 12.2)
	assert.InDelta(t, 0.01+0.0001*13, est, 1e-9)
}
