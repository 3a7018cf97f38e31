package ledger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// chargeScript performs the compare-and-decrement server-side so that
// concurrent chargers across gateway instances cannot interleave
// between the read and the debit.
var chargeScript = redis.NewScript(`
local balance = redis.call('GET', KEYS[1])
if not balance then
	return {-1, '0'}
end
balance = tonumber(balance)
local amount = tonumber(ARGV[1])
if balance < amount then
	return {0, tostring(balance)}
end
balance = balance - amount
redis.call('SET', KEYS[1], tostring(balance))
return {1, tostring(balance)}
`)

// RedisLedger stores balances in Redis. Suitable for multi-instance
// deployments that share one credit pool per tenant.
type RedisLedger struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisLedger creates a ledger on an existing client. Keys are
// written as <prefix><tenant_id>; an empty prefix defaults to
// "credits:".
func NewRedisLedger(client *redis.Client, keyPrefix string) *RedisLedger {
	if keyPrefix == "" {
		keyPrefix = "credits:"
	}
	return &RedisLedger{client: client, keyPrefix: keyPrefix}
}

func (l *RedisLedger) key(tenantID string) string {
	return l.keyPrefix + tenantID
}

func (l *RedisLedger) ChargeIfSufficient(ctx context.Context, tenantID string, amount float64) (ChargeResult, error) {
	raw, err := chargeScript.Run(ctx, l.client,
		[]string{l.key(tenantID)},
		strconv.FormatFloat(amount, 'f', -1, 64),
	).Result()
	if err != nil {
		return ChargeResult{}, fmt.Errorf("failed to charge tenant %s: %w", tenantID, err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 2 {
		return ChargeResult{}, fmt.Errorf("unexpected charge script reply %v", raw)
	}
	status, _ := reply[0].(int64)
	if status == -1 {
		return ChargeResult{}, &UnknownTenantError{TenantID: tenantID}
	}

	balanceStr, _ := reply[1].(string)
	balance, err := strconv.ParseFloat(balanceStr, 64)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("unexpected balance %q in charge reply", balanceStr)
	}
	return ChargeResult{Charged: status == 1, NewBalance: balance}, nil
}

func (l *RedisLedger) Credit(ctx context.Context, tenantID string, amount float64) (float64, error) {
	balance, err := l.client.IncrByFloat(ctx, l.key(tenantID), amount).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to credit tenant %s: %w", tenantID, err)
	}
	return balance, nil
}

func (l *RedisLedger) Balance(ctx context.Context, tenantID string) (float64, error) {
	raw, err := l.client.Get(ctx, l.key(tenantID)).Result()
	if err == redis.Nil {
		return 0, &UnknownTenantError{TenantID: tenantID}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance for tenant %s: %w", tenantID, err)
	}
	balance, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt balance %q for tenant %s", raw, tenantID)
	}
	return balance, nil
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}
