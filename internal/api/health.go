package api

import (
	"context"
	"net/http"
	"time"

	"github.com/medsql/medsql/internal/config"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// handleHealth reports per-dependency health and always answers 200; a
// degraded status is information, not an outage. Readiness gating lives on
// /v1/ready instead.
func handleHealth(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	timeout := deps.DependencyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	dataStore := probeDataStore(ctx, deps)
	completion := probeCompletion(deps)

	status := statusHealthy
	if dataStore != statusHealthy || completion != statusHealthy {
		status = statusDegraded
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"data_store": dataStore,
		"completion": completion,
		"service":    cfg.Service.Name,
		"timestamp":  deps.now().UTC().Format(time.RFC3339),
	})
}

// probeDataStore issues a one-row sample read, which exercises the full
// query path rather than just a connection ping.
func probeDataStore(ctx context.Context, deps Dependencies) string {
	if deps.Store == nil {
		return "not configured"
	}
	if _, err := deps.Store.SampleRecords(ctx, 1); err != nil {
		return "unhealthy: " + err.Error()
	}
	return statusHealthy
}

func probeCompletion(deps Dependencies) string {
	if deps.CompletionProbe == nil {
		return "not initialized"
	}
	if err := deps.CompletionProbe(); err != nil {
		return "unhealthy: " + err.Error()
	}
	return statusHealthy
}
