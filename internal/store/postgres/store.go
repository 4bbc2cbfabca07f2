package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/medsql/medsql/internal/records"
)

// Store keeps triplets in the medical_records table. Generated queries run
// against the c view, which exposes the table under the document field
// names; unquoted identifiers fold to lower case on the way in and are
// canonicalized on the way out.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
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
		`INSERT INTO medical_records (id, medcode, slot, value, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		record.ID, record.MEDCode, record.Slot, record.Value, record.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert medical record: %w", err)
	}
	return nil
}

func (s *Store) SampleRecords(ctx context.Context, limit int) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, medcode, slot, value, recorded_at FROM medical_records ORDER BY medcode ASC, slot ASC LIMIT $1`,
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
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM medical_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count medical records: %w", err)
	}
	return count, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping store db: %w", err)
	}
	return nil
}

// collectRows drains a result set into canonical wire maps without assuming
// a fixed column list, since generated queries may project anything.
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
