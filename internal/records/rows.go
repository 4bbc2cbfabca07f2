package records

import (
	"strings"
	"time"
)

// canonicalColumns maps lower-cased column names back to the document field
// names callers see. Postgres folds unquoted identifiers to lower case, so
// the view behind generated queries reports medcode/slot/value; DuckDB and
// Elasticsearch preserve case but are normalized through the same table.
var canonicalColumns = map[string]string{
	"id":          "id",
	"medcode":     "MEDCode",
	"slot":        "Slot",
	"value":       "Value",
	"timestamp":   "timestamp",
	"recorded_at": "timestamp",
}

func CanonicalColumn(name string) string {
	if canonical, ok := canonicalColumns[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// CanonicalizeRows converts positional result rows into wire-ready maps with
// canonical field names and normalized scalar values.
func CanonicalizeRows(columns []string, rows [][]any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		entry := make(map[string]any, len(columns))
		for i, col := range columns {
			if i >= len(row) {
				break
			}
			entry[CanonicalColumn(col)] = NormalizeValue(row[i])
		}
		out = append(out, entry)
	}
	return out
}

// NormalizeValue flattens driver-specific scalar types into JSON-friendly
// ones: byte slices become strings, timestamps become RFC 3339 UTC strings,
// and integral floats collapse to int64 so codes do not render as 1302.0.
func NormalizeValue(v any) any {
	switch value := v.(type) {
	case []byte:
		return string(value)
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	case float64:
		if value == float64(int64(value)) {
			return int64(value)
		}
		return value
	case float32:
		return NormalizeValue(float64(value))
	case int:
		return int64(value)
	case int32:
		return int64(value)
	default:
		return v
	}
}

// TrimSQL strips surrounding whitespace and trailing statement terminators so
// a single generated statement can be handed to drivers that reject them.
func TrimSQL(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
