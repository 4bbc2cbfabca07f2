package postgres

import (
	"context"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/medsql/medsql/internal/records"
)

func newSQLMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestQueryCanonicalizesColumnsAndValues(t *testing.T) {
	store, mock := newSQLMock(t)
	recorded := time.Date(2024, 8, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM c WHERE c.MEDCode = 1302`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "medcode", "slot", "value", "timestamp"}).
			AddRow("rec-1", int64(1302), int64(150), []byte("19928"), recorded))

	rows, err := store.Query(context.Background(), "SELECT * FROM c WHERE c.MEDCode = 1302;")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	want := []map[string]any{{
		"id":        "rec-1",
		"MEDCode":   int64(1302),
		"Slot":      int64(150),
		"Value":     "19928",
		"timestamp": "2024-08-02T10:00:00Z",
	}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("unexpected rows %#v", rows)
	}
	assertSQLMock(t, mock)
}

func TestQueryEmptyResult(t *testing.T) {
	store, mock := newSQLMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM c WHERE c.Slot = 999`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "medcode", "slot", "value", "timestamp"}))

	rows, err := store.Query(context.Background(), "SELECT * FROM c WHERE c.Slot = 999")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %v", rows)
	}
	assertSQLMock(t, mock)
}

func TestCreateRecordInsertsAllFields(t *testing.T) {
	store, mock := newSQLMock(t)
	recorded := time.Date(2024, 8, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO medical_records (id, medcode, slot, value, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
	)).
		WithArgs("rec-1", int64(1302), int64(150), "19928", recorded).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.CreateRecord(context.Background(), records.MedicalRecord{
		ID:        "rec-1",
		MEDCode:   1302,
		Slot:      150,
		Value:     "19928",
		Timestamp: recorded,
	})
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	assertSQLMock(t, mock)
}

func TestSampleRecordsOrdersByCode(t *testing.T) {
	store, mock := newSQLMock(t)
	recorded := time.Date(2024, 8, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, medcode, slot, value, recorded_at FROM medical_records ORDER BY medcode ASC, slot ASC LIMIT $1`,
	)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "medcode", "slot", "value", "recorded_at"}).
			AddRow("rec-1", int64(1302), int64(150), []byte("19928"), recorded).
			AddRow("rec-2", int64(1302), int64(151), []byte("Blood pressure systolic"), recorded))

	rows, err := store.SampleRecords(context.Background(), 2)
	if err != nil {
		t.Fatalf("SampleRecords: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected two rows, got %d", len(rows))
	}
	if rows[0]["MEDCode"] != int64(1302) || rows[0]["Value"] != "19928" {
		t.Fatalf("unexpected first row %#v", rows[0])
	}
	if rows[1]["timestamp"] != "2024-08-02T10:00:00Z" {
		t.Fatalf("unexpected timestamp %v", rows[1]["timestamp"])
	}
	assertSQLMock(t, mock)
}

func TestCountRecords(t *testing.T) {
	store, mock := newSQLMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM medical_records`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(13)))

	count, err := store.CountRecords(context.Background())
	if err != nil {
		t.Fatalf("CountRecords: %v", err)
	}
	if count != 13 {
		t.Fatalf("expected 13, got %d", count)
	}
	assertSQLMock(t, mock)
}

func TestHealthCheckPingsDB(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectPing()

	store := NewStore(db)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	assertSQLMock(t, mock)
}
