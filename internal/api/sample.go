package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medsql/medsql/internal/auth"
)

const (
	defaultSampleLimit = 10
	maxSampleLimit     = 100
)

func handleSampleData(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Store == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "STORE_NOT_CONFIGURED", "data store is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleRead); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	limit := clampSampleLimit(r.URL.Query().Get("limit"))
	rows, err := deps.Store.SampleRecords(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SAMPLE_FETCH_FAILED", err.Error(), true, nil)
		return
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sample_data": rows,
		"count":       len(rows),
		"success":     true,
		"timestamp":   deps.now().UTC().Format(time.RFC3339),
	})
}

// clampSampleLimit parses the limit parameter, falling back to the default
// for absent or unparseable values and clamping the rest to [1, 100].
func clampSampleLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultSampleLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return defaultSampleLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > maxSampleLimit {
		return maxSampleLimit
	}
	return limit
}
