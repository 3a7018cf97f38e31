package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists tenant policies in a local SQLite database,
// typically the same file as the credit ledger. Lookups hit the
// database directly; wrap the store in a CachingStore when the
// gateway serves it on the request path.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the policy table at
// path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant database: %w", err)
	}

	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS tenant_policies (
		tenant_id TEXT PRIMARY KEY,
		eu_only INTEGER NOT NULL DEFAULT 0,
		dpa_accepted INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tenant schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Policy(ctx context.Context, tenantID string) (*Policy, error) {
	p := Policy{TenantID: tenantID}
	err := s.db.QueryRowContext(ctx,
		`SELECT eu_only, dpa_accepted FROM tenant_policies WHERE tenant_id = ?`,
		tenantID,
	).Scan(&p.EUOnly, &p.DPAAccepted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{TenantID: tenantID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read policy for tenant %s: %w", tenantID, err)
	}
	return &p, nil
}

// Put inserts or replaces a single policy.
func (s *SQLiteStore) Put(ctx context.Context, p Policy) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenant_policies (tenant_id, eu_only, dpa_accepted) VALUES (?, ?, ?)
		 ON CONFLICT (tenant_id) DO UPDATE
		 SET eu_only = excluded.eu_only,
		     dpa_accepted = excluded.dpa_accepted,
		     updated_at = CURRENT_TIMESTAMP`,
		p.TenantID, p.EUOnly, p.DPAAccepted,
	)
	if err != nil {
		return fmt.Errorf("failed to store policy for tenant %s: %w", p.TenantID, err)
	}
	return nil
}

// Replace swaps the entire policy set in one transaction. Used by
// configuration reload.
func (s *SQLiteStore) Replace(ctx context.Context, policies []Policy) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to replace tenant policies: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tenant_policies`); err != nil {
		return fmt.Errorf("failed to replace tenant policies: %w", err)
	}
	for _, p := range policies {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tenant_policies (tenant_id, eu_only, dpa_accepted) VALUES (?, ?, ?)`,
			p.TenantID, p.EUOnly, p.DPAAccepted,
		)
		if err != nil {
			return fmt.Errorf("failed to store policy for tenant %s: %w", p.TenantID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
