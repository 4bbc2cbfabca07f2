package query

import "time"

// Outcome is the uniform result of one pipeline run. Exactly one of the
// success or failure shapes holds: on success GeneratedSQL is set, Error is
// empty and RowCount equals len(Results); on failure Results is absent and
// RowCount is zero. Timestamp records completion time in UTC.
type Outcome struct {
	NaturalLanguageQuery string           `json:"natural_language_query"`
	GeneratedSQL         string           `json:"generated_sql,omitempty"`
	Results              []map[string]any `json:"results,omitempty"`
	RowCount             int              `json:"row_count"`
	Success              bool             `json:"success"`
	Error                string           `json:"error,omitempty"`
	Timestamp            string           `json:"timestamp"`
}

func successOutcome(naturalLanguage, sqlText string, rows []map[string]any, at time.Time) Outcome {
	return Outcome{
		NaturalLanguageQuery: naturalLanguage,
		GeneratedSQL:         sqlText,
		Results:              rows,
		RowCount:             len(rows),
		Success:              true,
		Timestamp:            at.UTC().Format(time.RFC3339),
	}
}

func failureOutcome(naturalLanguage, sqlText, message string, at time.Time) Outcome {
	return Outcome{
		NaturalLanguageQuery: naturalLanguage,
		GeneratedSQL:         sqlText,
		Success:              false,
		Error:                message,
		Timestamp:            at.UTC().Format(time.RFC3339),
	}
}
