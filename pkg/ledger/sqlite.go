package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteLedger persists balances in a local SQLite database. The
// conditional UPDATE makes ChargeIfSufficient atomic without an
// explicit transaction: SQLite serializes writers, and the amount is
// only subtracted when the WHERE clause sees a sufficient balance.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (and if needed creates) the ledger database
// at path. Use ":memory:" for an ephemeral ledger.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	// A single writer connection avoids SQLITE_BUSY under concurrent
	// charges.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS credit_accounts (
		tenant_id TEXT PRIMARY KEY,
		balance REAL NOT NULL CHECK (balance >= 0),
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) ChargeIfSufficient(ctx context.Context, tenantID string, amount float64) (ChargeResult, error) {
	res, err := l.db.ExecContext(ctx,
		`UPDATE credit_accounts
		 SET balance = balance - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE tenant_id = ? AND balance >= ?`,
		amount, tenantID, amount,
	)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("failed to charge tenant %s: %w", tenantID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return ChargeResult{}, fmt.Errorf("failed to charge tenant %s: %w", tenantID, err)
	}

	balance, err := l.Balance(ctx, tenantID)
	if err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{Charged: affected == 1, NewBalance: balance}, nil
}

func (l *SQLiteLedger) Credit(ctx context.Context, tenantID string, amount float64) (float64, error) {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO credit_accounts (tenant_id, balance) VALUES (?, ?)
		 ON CONFLICT (tenant_id) DO UPDATE
		 SET balance = balance + excluded.balance, updated_at = CURRENT_TIMESTAMP`,
		tenantID, amount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to credit tenant %s: %w", tenantID, err)
	}
	return l.Balance(ctx, tenantID)
}

func (l *SQLiteLedger) Balance(ctx context.Context, tenantID string) (float64, error) {
	var balance float64
	err := l.db.QueryRowContext(ctx,
		`SELECT balance FROM credit_accounts WHERE tenant_id = ?`, tenantID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &UnknownTenantError{TenantID: tenantID}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance for tenant %s: %w", tenantID, err)
	}
	return balance, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
