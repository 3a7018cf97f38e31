package audit

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SlogSink writes each record as a structured log line. Useful in
// development and as a secondary sink behind SQLite.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink on the given logger; nil uses the
// default logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Write(record *UsageRecord) error {
	s.logger.Info("usage record",
		"id", record.ID,
		"request_id", record.RequestID,
		"tenant_id", record.TenantID,
		"provider", record.Provider,
		"model", record.Model,
		"modality", record.Modality,
		"outcome", record.Outcome,
		"fallback_applied", record.FallbackApplied,
		"pii_redacted", record.PIIRedacted,
		"input_units", record.InputUnits,
		"output_units", record.OutputUnits,
		"cost", record.Cost,
		"duration_ms", record.Duration.Milliseconds(),
	)
	return nil
}

func (s *SlogSink) Close() error { return nil }

// SQLiteSink persists records to a local SQLite database for
// reporting and retention.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (and if needed creates) the audit database.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS usage_records (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		modality TEXT NOT NULL,
		outcome TEXT NOT NULL,
		fallback_applied INTEGER NOT NULL,
		pii_redacted INTEGER NOT NULL,
		input_units INTEGER NOT NULL,
		output_units INTEGER NOT NULL,
		cost REAL NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_tenant_time
		ON usage_records (tenant_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_usage_created
		ON usage_records (created_at);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(record *UsageRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO usage_records
		 (id, request_id, tenant_id, provider, model, modality, outcome,
		  fallback_applied, pii_redacted, input_units, output_units,
		  cost, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RequestID, record.TenantID, record.Provider,
		record.Model, record.Modality, record.Outcome,
		record.FallbackApplied, record.PIIRedacted,
		record.InputUnits, record.OutputUnits,
		record.Cost, record.Duration.Milliseconds(), record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write usage record %s: %w", record.ID, err)
	}
	return nil
}

// Prune deletes records older than the retention window and returns
// the number removed.
func (s *SQLiteSink) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.Exec(
		`DELETE FROM usage_records WHERE created_at < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune usage records: %w", err)
	}
	return res.RowsAffected()
}

// TenantTotals sums cost per outcome for a tenant since a point in
// time.
func (s *SQLiteSink) TenantTotals(tenantID string, since time.Time) (map[string]float64, error) {
	rows, err := s.db.Query(
		`SELECT outcome, COALESCE(SUM(cost), 0)
		 FROM usage_records
		 WHERE tenant_id = ? AND created_at >= ?
		 GROUP BY outcome`,
		tenantID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var outcome string
		var cost float64
		if err := rows.Scan(&outcome, &cost); err != nil {
			return nil, fmt.Errorf("failed to scan tenant totals: %w", err)
		}
		totals[outcome] = cost
	}
	return totals, rows.Err()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
