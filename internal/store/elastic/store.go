package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/medsql/medsql/internal/records"
)

const (
	defaultIndex = "medical-records"
	defaultAlias = "c"
)

// indexMapping fixes field types so SQL filters behave predictably: codes
// and slots are longs, values are keywords (exact plus wildcard matching),
// timestamps are dates. The container alias is attached at creation time so
// generated FROM c statements resolve.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id": {"type": "keyword"},
      "MEDCode": {"type": "long"},
      "Slot": {"type": "long"},
      "Value": {"type": "keyword"},
      "timestamp": {"type": "date"}
    }
  },
  "aliases": {
    "%s": {}
  }
}`

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	Alias     string

	// Transport overrides the HTTP layer, used by tests.
	Transport http.RoundTripper
}

// Store keeps triplets as documents in a single index and executes generated
// statements through the Elasticsearch SQL endpoint, which accepts the same
// SELECT subset the other backends do.
type Store struct {
	client *elasticsearch.Client
	index  string
	alias  string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("at least one address is required")
	}
	esConfig := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if cfg.Transport != nil {
		esConfig.Transport = cfg.Transport
	}
	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	store := &Store{
		client: client,
		index:  valueOr(cfg.Index, defaultIndex),
		alias:  valueOr(cfg.Alias, defaultAlias),
	}
	if err := store.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

// ensureIndex creates the index with mapping and alias on first run. Index
// creation is the only schema step this backend has.
func (s *Store) ensureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %q: %w", s.index, err)
	}
	defer drainResponse(res)
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index %q: unexpected status %d", s.index, res.StatusCode)
	}

	body := fmt.Sprintf(indexMapping, s.alias)
	createRes, err := s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithBody(strings.NewReader(body)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %q: %w", s.index, err)
	}
	defer drainResponse(createRes)
	if createRes.IsError() {
		return fmt.Errorf("create index %q: %s", s.index, responseBody(createRes))
	}
	return nil
}

func (s *Store) Query(ctx context.Context, sqlText string) ([]map[string]any, error) {
	payload, err := json.Marshal(map[string]string{"query": records.TrimSQL(sqlText)})
	if err != nil {
		return nil, fmt.Errorf("marshal sql request: %w", err)
	}

	res, err := s.client.SQL.Query(bytes.NewReader(payload),
		s.client.SQL.Query.WithContext(ctx),
		s.client.SQL.Query.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("execute sql query: %w", err)
	}
	defer drainResponse(res)
	if res.IsError() {
		return nil, fmt.Errorf("execute sql query: %s", responseBody(res))
	}

	var parsed struct {
		Columns []struct {
			Name string `json:"name"`
		} `json:"columns"`
		Rows [][]any `json:"rows"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode sql response: %w", err)
	}

	columns := make([]string, 0, len(parsed.Columns))
	for _, column := range parsed.Columns {
		columns = append(columns, column.Name)
	}
	return records.CanonicalizeRows(columns, parsed.Rows), nil
}

func (s *Store) CreateRecord(ctx context.Context, record records.MedicalRecord) error {
	doc, err := json.Marshal(map[string]any{
		"id":        record.ID,
		"MEDCode":   record.MEDCode,
		"Slot":      record.Slot,
		"Value":     record.Value,
		"timestamp": record.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal medical record: %w", err)
	}

	// wait_for keeps seeding read-your-write: CountRecords sees documents
	// from the previous batch.
	res, err := s.client.Index(s.index, bytes.NewReader(doc),
		s.client.Index.WithDocumentID(record.ID),
		s.client.Index.WithRefresh("wait_for"),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index medical record: %w", err)
	}
	defer drainResponse(res)
	if res.IsError() {
		return fmt.Errorf("index medical record: %s", responseBody(res))
	}
	return nil
}

func (s *Store) SampleRecords(ctx context.Context, limit int) ([]map[string]any, error) {
	return s.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY MEDCode ASC, Slot ASC LIMIT %d", s.alias, limit))
}

func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	rows, err := s.Query(ctx, fmt.Sprintf("SELECT COUNT(*) AS total FROM %s", s.alias))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("count query returned no rows")
	}
	switch total := rows[0]["total"].(type) {
	case int64:
		return total, nil
	case float64:
		return int64(total), nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", rows[0]["total"])
	}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer drainResponse(res)
	if res.IsError() {
		return fmt.Errorf("ping elasticsearch: status %d", res.StatusCode)
	}
	return nil
}

func drainResponse(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}

func responseBody(res *esapi.Response) string {
	if res == nil || res.Body == nil {
		return ""
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Sprintf("status %d", res.StatusCode)
	}
	return strings.TrimSpace(string(body))
}
