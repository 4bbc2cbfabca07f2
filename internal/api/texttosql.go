package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/medsql/medsql/internal/auth"
)

type textToSQLRequest struct {
	Query string `json:"query"`
}

// handleTextToSQL validates the envelope, then hands the question to the
// pipeline. Pipeline results are returned as-is: HTTP 200 for success, 500
// for a failed outcome, with the outcome itself as the body either way.
func handleTextToSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "query pipeline is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleRead); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request textToSQLRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "request body must be valid JSON: "+err.Error(), false, nil)
		return
	}

	text := strings.TrimSpace(request.Query)
	if text == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query text is required", false, nil)
		return
	}

	outcome := deps.Pipeline.Run(r.Context(), text)
	status := http.StatusOK
	if !outcome.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, outcome)
}
