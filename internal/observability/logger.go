package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/medsql/medsql/internal/config"
)

type contextKey int

const traceIDContextKey contextKey = iota

// NewLogger builds the process logger from the observability settings. Every
// line carries the service name and active profile.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(writer, opts)
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, opts)
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDContextKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDContextKey).(string)
	return id
}
