package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/medsql/medsql/internal/records"
)

const bootstrapDDL = `
CREATE TABLE IF NOT EXISTS medical_records (
	id VARCHAR PRIMARY KEY,
	medcode BIGINT NOT NULL,
	slot BIGINT NOT NULL,
	value VARCHAR NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE OR REPLACE VIEW c AS
SELECT id, medcode AS MEDCode, slot AS Slot, value AS Value, recorded_at AS "timestamp"
FROM medical_records;
`

// Store embeds DuckDB in-process. An empty path opens an in-memory database,
// which is what the dev profile and tests use; a file path persists across
// restarts. The schema is bootstrapped on open, so no migration step exists
// for this backend.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if _, err := db.ExecContext(ctx, bootstrapDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap duckdb schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Query(ctx context.Context, sqlText string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, records.TrimSQL(sqlText))
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectRows(rows)
}

func (s *Store) CreateRecord(ctx context.Context, record records.MedicalRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO medical_records (id, medcode, slot, value, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.MEDCode, record.Slot, record.Value, record.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert medical record: %w", err)
	}
	return nil
}

func (s *Store) SampleRecords(ctx context.Context, limit int) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, medcode, slot, value, recorded_at FROM medical_records ORDER BY medcode ASC, slot ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sample medical records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectRows(rows)
}

func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM medical_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count medical records: %w", err)
	}
	return count, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping duckdb: %w", err)
	}
	return nil
}

func collectRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	var raw [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		raw = append(raw, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return records.CanonicalizeRows(columns, raw), nil
}
