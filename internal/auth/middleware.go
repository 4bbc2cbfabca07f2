package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/medsql/medsql/internal/observability"
)

type identityKeyType struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKeyType{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKeyType{}).(Identity)
	return identity, ok
}

// Middleware rejects requests that do not carry a valid API key and stores
// the resolved identity on the request context. A nil logger disables the
// rejection log line.
func Middleware(logger *slog.Logger, validator APIKeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				deny(w, r, logger, "missing API key")
				return
			}
			identity, ok := validator.Validate(r.Context(), key)
			if !ok {
				deny(w, r, logger, "invalid API key")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// extractAPIKey prefers the X-API-Key header and falls back to a bearer
// token in Authorization.
func extractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func deny(w http.ResponseWriter, r *http.Request, logger *slog.Logger, message string) {
	if logger != nil {
		logger.WarnContext(r.Context(), "request unauthorized",
			slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("reason", message),
		)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error_code": "UNAUTHORIZED",
		"message":    message,
		"retryable":  false,
		"trace_id":   observability.TraceIDFromContext(r.Context()),
	})
}
