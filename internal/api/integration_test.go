//go:build integration

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/medsql/medsql/internal/cache"
	"github.com/medsql/medsql/internal/migrations"
	"github.com/medsql/medsql/internal/query"
	"github.com/medsql/medsql/internal/records"
	pgstore "github.com/medsql/medsql/internal/store/postgres"
)

// scriptedTranslator returns a fixed statement, standing in for the
// completion provider so integration runs stay deterministic and offline.
type scriptedTranslator struct {
	response string
	calls    int
}

func (s *scriptedTranslator) Translate(ctx context.Context, naturalLanguage string) (string, error) {
	s.calls++
	return s.response, nil
}

func (s *scriptedTranslator) Healthy() error { return nil }

// newMigratedDB provisions a scratch database with the full schema applied.
// The test is skipped unless MEDSQL_TEST_STORE_DSN points at a reachable
// admin database; everything created here is dropped on cleanup.
func newMigratedDB(t *testing.T) *sql.DB {
	t.Helper()

	adminDSN := strings.TrimSpace(os.Getenv("MEDSQL_TEST_STORE_DSN"))
	if adminDSN == "" {
		t.Skip("MEDSQL_TEST_STORE_DSN is not set")
	}

	parsed, err := url.Parse(adminDSN)
	if err != nil {
		t.Fatalf("url.Parse(adminDSN) error = %v", err)
	}
	if strings.TrimPrefix(parsed.Path, "/") == "" {
		t.Fatal("admin DSN must include a database name")
	}

	adminDB, err := sql.Open("pgx", adminDSN)
	if err != nil {
		t.Fatalf("sql.Open(adminDSN) error = %v", err)
	}

	name := fmt.Sprintf("medsql_it_api_%d", time.Now().UnixNano())
	if _, err := adminDB.Exec(`CREATE DATABASE ` + name); err != nil {
		t.Fatalf("CREATE DATABASE failed: %v", err)
	}
	t.Cleanup(func() {
		defer func() { _ = adminDB.Close() }()
		if _, err := adminDB.Exec(`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`, name); err != nil {
			t.Errorf("terminate scratch db sessions: %v", err)
		}
		if _, err := adminDB.Exec(`DROP DATABASE ` + name); err != nil {
			t.Errorf("DROP DATABASE failed: %v", err)
		}
	})

	scratchURL := *parsed
	scratchURL.Path = "/" + name
	db, err := sql.Open("pgx", scratchURL.String())
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if _, err := migrations.NewRunner().Up(ctx, db, 0); err != nil {
		t.Fatalf("migrations.Up() error = %v", err)
	}
	return db
}

func TestUploadAndQueryRoundTripWithPostgresStore(t *testing.T) {
	db := newMigratedDB(t)

	store := pgstore.NewStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	translator := &scriptedTranslator{
		response: "```sql\nSELECT MEDCode, Slot, Value FROM c WHERE MEDCode = 1302\n```",
	}
	h := NewHandler(testConfig(t, nil), Dependencies{
		Logger: logger,
		Pipeline: &query.Service{
			Translator: translator,
			Store:      store,
			Cache:      cache.Noop{},
			Logger:     logger,
		},
		Store:    store,
		Uploader: &records.Uploader{Store: store, Logger: logger},
	})

	upload := doJSONRequest(t, h, http.MethodPost, "/v1/medical-data", map[string]any{
		"records": []map[string]any{
			{"MEDCode": 1302, "Slot": 150, "Value": "19928"},
			{"MEDCode": 1302, "Slot": 152, "Value": "120"},
			{"MEDCode": 1304, "Slot": 151, "Value": "72"},
		},
	}, http.StatusOK)
	if upload["uploaded_count"] != float64(3) {
		t.Fatalf("uploaded_count = %v, body = %#v", upload["uploaded_count"], upload)
	}
	if upload["success"] != true {
		t.Fatalf("upload success = %v", upload["success"])
	}

	outcome := doJSONRequest(t, h, http.MethodPost, "/v1/text-to-sql", map[string]any{
		"query": "show readings for code 1302",
	}, http.StatusOK)
	if outcome["success"] != true {
		t.Fatalf("outcome success = %v, body = %#v", outcome["success"], outcome)
	}
	generated, _ := outcome["generated_sql"].(string)
	if !strings.HasPrefix(generated, "SELECT") {
		t.Fatalf("generated_sql = %q, want fencing stripped", generated)
	}
	if outcome["row_count"] != float64(2) {
		t.Fatalf("row_count = %v", outcome["row_count"])
	}
	results, ok := outcome["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("results = %#v", outcome["results"])
	}
	slots := map[float64]bool{}
	for _, entry := range results {
		row, ok := entry.(map[string]any)
		if !ok {
			t.Fatalf("row = %#v", entry)
		}
		if row["MEDCode"] != float64(1302) {
			t.Fatalf("row MEDCode = %v, row = %#v", row["MEDCode"], row)
		}
		slot, ok := row["Slot"].(float64)
		if !ok {
			t.Fatalf("row Slot = %#v", row["Slot"])
		}
		slots[slot] = true
	}
	if !slots[150] || !slots[152] {
		t.Fatalf("slots = %v, want 150 and 152", slots)
	}
	if translator.calls != 1 {
		t.Fatalf("translator calls = %d, want 1", translator.calls)
	}
}

func TestReadOnlyGuardBlocksMutationEndToEnd(t *testing.T) {
	db := newMigratedDB(t)

	store := pgstore.NewStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(testConfig(t, nil), Dependencies{
		Logger: logger,
		Pipeline: &query.Service{
			Translator: &scriptedTranslator{response: "DROP TABLE medical_records"},
			Store:      store,
			Cache:      cache.Noop{},
			Logger:     logger,
		},
		Store: store,
	})

	outcome := doJSONRequest(t, h, http.MethodPost, "/v1/text-to-sql", map[string]any{
		"query": "delete everything",
	}, http.StatusInternalServerError)
	if outcome["success"] != false {
		t.Fatalf("outcome success = %v, body = %#v", outcome["success"], outcome)
	}
	message, _ := outcome["error"].(string)
	if !strings.Contains(message, "query rejected") {
		t.Fatalf("error = %q, want guard rejection", message)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var count int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM medical_records").Scan(&count); err != nil {
		t.Fatalf("medical_records should survive the rejected statement: %v", err)
	}
}

func TestSampleDataServesStoredRecords(t *testing.T) {
	db := newMigratedDB(t)

	store := pgstore.NewStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(testConfig(t, nil), Dependencies{
		Logger:   logger,
		Store:    store,
		Uploader: &records.Uploader{Store: store, Logger: logger},
	})

	doJSONRequest(t, h, http.MethodPost, "/v1/medical-data", map[string]any{
		"records": []map[string]any{
			{"MEDCode": 1305, "Slot": 150, "Value": "Temperature"},
			{"MEDCode": 1305, "Slot": 151, "Value": "98.6"},
		},
	}, http.StatusOK)

	sample := doJSONRequest(t, h, http.MethodGet, "/v1/sample-data?limit=5", nil, http.StatusOK)
	if sample["count"] != float64(2) {
		t.Fatalf("count = %v, body = %#v", sample["count"], sample)
	}
	rows, ok := sample["sample_data"].([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("sample_data = %#v", sample["sample_data"])
	}
	first, ok := rows[0].(map[string]any)
	if !ok {
		t.Fatalf("first row = %#v", rows[0])
	}
	for _, key := range []string{"id", "MEDCode", "Slot", "Value", "timestamp"} {
		if _, present := first[key]; !present {
			t.Fatalf("sample row missing %q: %#v", key, first)
		}
	}
}

func doJSONRequest(t *testing.T, handler http.Handler, method, target string, payload any, wantStatus int) map[string]any {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("json.Marshal() error = %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != wantStatus {
		t.Fatalf("%s %s status = %d, want %d, body = %s", method, target, rr.Code, wantStatus, rr.Body.String())
	}

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response error = %v", err)
	}
	return response
}
