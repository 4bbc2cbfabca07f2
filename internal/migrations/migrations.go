// Package migrations applies the embedded Postgres schema scripts in order,
// one transaction per migration.
package migrations

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const migrationTable = "medsql_schema_migrations"

var migrationNamePattern = regexp.MustCompile(`^([0-9]+)_.+\.(up|down)\.sql$`)

type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

type migration struct {
	Version int64
	UpSQL   string
	DownSQL string
}

// Up applies pending migrations in ascending version order. steps <= 0 means
// all of them. Returns how many ran.
func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	migrations, err := loadMigrations(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureMigrationTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := appliedVersions(ctx, db, false)
	if err != nil {
		return 0, err
	}

	done := make(map[int64]bool, len(applied))
	for _, version := range applied {
		done[version] = true
	}

	ran := 0
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		if steps > 0 && ran >= steps {
			break
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

// Down rolls back the most recently applied migrations. steps <= 0 means one.
func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}

	migrations, err := loadMigrations(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureMigrationTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := appliedVersions(ctx, db, true)
	if err != nil {
		return 0, err
	}

	byVersion := make(map[int64]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	ran := 0
	for _, version := range applied {
		if ran >= steps {
			break
		}
		m, ok := byVersion[version]
		if !ok {
			return ran, fmt.Errorf("applied migration %d is missing from source", version)
		}
		if err := rollbackMigration(ctx, db, m); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

func ensureMigrationTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
	version BIGINT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	return inTx(ctx, db, fmt.Sprintf("migration %d", m.Version), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+migrationTable+` (version) VALUES ($1)`, m.Version); err != nil {
			return fmt.Errorf("mark migration %d: %w", m.Version, err)
		}
		return nil
	})
}

func rollbackMigration(ctx context.Context, db *sql.DB, m migration) error {
	return inTx(ctx, db, fmt.Sprintf("rollback %d", m.Version), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			return fmt.Errorf("rollback migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+migrationTable+` WHERE version = $1`, m.Version); err != nil {
			return fmt.Errorf("unmark migration %d: %w", m.Version, err)
		}
		return nil
	})
}

func inTx(ctx context.Context, db *sql.DB, label string, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", label, err)
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB, newestFirst bool) ([]int64, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	rows, err := db.QueryContext(ctx, `SELECT version FROM `+migrationTable+` ORDER BY version `+order)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return versions, nil
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "sql/*.sql")
	if err != nil {
		return nil, fmt.Errorf("glob migration scripts: %w", err)
	}

	byVersion := map[int64]*migration{}
	for _, name := range names {
		matches := migrationNamePattern.FindStringSubmatch(path.Base(name))
		if matches == nil {
			continue
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version for %q: %w", path.Base(name), err)
		}
		script, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", name, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &migration{Version: version}
			byVersion[version] = m
		}
		if matches[2] == "up" {
			m.UpSQL = string(script)
		} else {
			m.DownSQL = string(script)
		}
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b migration) int { return cmp.Compare(a.Version, b.Version) })

	for _, m := range migrations {
		if strings.TrimSpace(m.UpSQL) == "" {
			return nil, fmt.Errorf("migration %d missing up SQL", m.Version)
		}
		if strings.TrimSpace(m.DownSQL) == "" {
			return nil, fmt.Errorf("migration %d missing down SQL", m.Version)
		}
	}
	return migrations, nil
}
