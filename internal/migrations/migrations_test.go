package migrations

import (
	"strings"
	"testing"
	"testing/fstest"
)

func scriptFS(files map[string]string) fstest.MapFS {
	fsys := make(fstest.MapFS, len(files))
	for name, script := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(script)}
	}
	return fsys
}

func TestLoadMigrationsSortsAndPairsUpDown(t *testing.T) {
	fsys := scriptFS(map[string]string{
		"sql/000002_value_index.up.sql":       "CREATE INDEX medical_records_value_idx ON medical_records (value);",
		"sql/000002_value_index.down.sql":     "DROP INDEX medical_records_value_idx;",
		"sql/000001_medical_records.up.sql":   "CREATE TABLE medical_records (id TEXT PRIMARY KEY);",
		"sql/000001_medical_records.down.sql": "DROP TABLE medical_records;",
	})

	items, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Version != 1 || items[1].Version != 2 {
		t.Fatalf("unexpected migration order: %+v", items)
	}
	if !strings.Contains(items[0].UpSQL, "CREATE TABLE") || !strings.Contains(items[0].DownSQL, "DROP TABLE") {
		t.Fatalf("version 1 scripts paired wrong: %+v", items[0])
	}
}

func TestLoadMigrationsRequiresBothDirections(t *testing.T) {
	cases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "down missing",
			files:   map[string]string{"sql/000001_medical_records.up.sql": "CREATE TABLE medical_records (id TEXT);"},
			wantErr: "missing down SQL",
		},
		{
			name:    "up missing",
			files:   map[string]string{"sql/000001_medical_records.down.sql": "DROP TABLE medical_records;"},
			wantErr: "missing up SQL",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadMigrations(scriptFS(tc.files))
			if err == nil {
				t.Fatal("expected error for unpaired migration")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadMigrationsIgnoresUnrelatedFiles(t *testing.T) {
	fsys := scriptFS(map[string]string{
		"sql/000001_medical_records.up.sql":   "CREATE TABLE medical_records (id TEXT);",
		"sql/000001_medical_records.down.sql": "DROP TABLE medical_records;",
		"sql/README.md":                       "schema notes",
		"sql/backup.sql.bak":                  "SELECT 0;",
	})

	items, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
}
