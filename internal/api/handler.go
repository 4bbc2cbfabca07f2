package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medsql/medsql/internal/auth"
	"github.com/medsql/medsql/internal/config"
	"github.com/medsql/medsql/internal/observability"
	"github.com/medsql/medsql/internal/query"
	"github.com/medsql/medsql/internal/records"
)

const defaultDependencyTimeout = 2 * time.Second

type ReadinessCheck func(ctx context.Context) error

// QueryPipeline is the transport-facing slice of the translation pipeline.
type QueryPipeline interface {
	Run(ctx context.Context, naturalLanguage string) query.Outcome
}

// RecordUploader accepts record batches for persistence.
type RecordUploader interface {
	Upload(ctx context.Context, inputs []records.RecordInput) records.UploadResult
}

type Dependencies struct {
	Logger            *slog.Logger
	Pipeline          QueryPipeline
	Store             records.Store
	Uploader          RecordUploader
	CompletionProbe   func() error
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	MCP               http.Handler
	Clock             func() time.Time
}

func (d Dependencies) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		handleHealth(cfg, deps, w, r)
	})
	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		handleReady(deps, w, r)
	})
	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protectedRoutes := map[string]http.HandlerFunc{
		"POST /v1/text-to-sql":  func(w http.ResponseWriter, r *http.Request) { handleTextToSQL(deps, w, r) },
		"GET /v1/sample-data":   func(w http.ResponseWriter, r *http.Request) { handleSampleData(deps, w, r) },
		"POST /v1/medical-data": func(w http.ResponseWriter, r *http.Request) { handleUploadRecords(deps, w, r) },
	}
	for pattern, handlerFunc := range protectedRoutes {
		protected.HandleFunc(pattern, handlerFunc)
	}
	if deps.MCP != nil {
		protected.Handle("/mcp", deps.MCP)
	}

	guarded := guardHandler(cfg, deps, protected)
	for pattern := range protectedRoutes {
		mux.Handle(pattern, guarded)
	}
	if deps.MCP != nil {
		mux.Handle("/mcp", guarded)
	}

	recoverLogger := deps.Logger
	if recoverLogger == nil {
		recoverLogger = slog.Default()
	}
	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	middlewares = append(middlewares, observability.RecoverMiddleware(recoverLogger))
	return chain(mux, middlewares...)
}

func handleReady(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Readiness == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}

	timeout := deps.DependencyTimeout
	if timeout <= 0 {
		timeout = defaultDependencyTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	if err := deps.Readiness(ctx); err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// guardHandler wraps the protected routes with the auth middleware. A config
// that requires auth without supplying the middleware fails every request
// rather than silently serving unauthenticated traffic.
func guardHandler(cfg config.Config, deps Dependencies, protected http.Handler) http.Handler {
	if !cfg.Auth.Required {
		return protected
	}
	if deps.AuthMiddleware == nil {
		if deps.Logger != nil {
			deps.Logger.Error("auth required but auth middleware missing")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
		})
	}
	return deps.AuthMiddleware(protected)
}

// CheckStore reports readiness of the configured data store.
func CheckStore(store records.Store) ReadinessCheck {
	return func(ctx context.Context) error {
		if store == nil {
			return errors.New("data store is not configured")
		}
		return store.HealthCheck(ctx)
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// requireRole passes when auth is disabled (no identity in context) and
// otherwise demands the given role.
func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("role %q is required", role)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}
	return base
}

type errorBody struct {
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Context   map[string]any `json:"context"`
	TraceID   string         `json:"trace_id"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, errorBody{
		ErrorCode: code,
		Message:   message,
		Retryable: retryable,
		Context:   extra,
		TraceID:   observability.TraceIDFromContext(ctx),
	})
}
