package observability

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"
)

const traceHeader = "X-Trace-ID"

// TraceMiddleware tags each request with a trace id, either the caller's
// X-Trace-ID value or a generated one, and echoes it on the response.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(traceHeader)
		if id == "" {
			id = newTraceID()
		}
		w.Header().Set(traceHeader, id)
		next.ServeHTTP(w, r.WithContext(ContextWithTraceID(r.Context(), id)))
	})
}

// LoggingMiddleware emits one structured line per request after it completes.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			tap := &responseTap{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(tap, r)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http_request",
				slog.String("trace_id", TraceIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", tap.code),
				slog.Duration("duration", time.Since(started)),
				slog.Int("bytes", tap.written),
			)
		})
	}
}

// RecoverMiddleware converts handler panics into a generic 500 response so a
// single request cannot take the process down. The panic value and stack are
// logged with the request trace id.
func RecoverMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				cause := recover()
				if cause == nil {
					return
				}
				logger.LogAttrs(r.Context(), slog.LevelError, "handler panic",
					slog.String("trace_id", TraceIDFromContext(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", cause),
					slog.String("stack", string(debug.Stack())),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error_code":"INTERNAL","message":"internal server error","retryable":true}`))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// MetricsMiddleware records request counts and latency per method, path, and
// status code.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		tap := &responseTap{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(tap, r)
		ObserveHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(tap.code), time.Since(started))
	})
}

// responseTap captures the status code and body size a handler writes.
type responseTap struct {
	http.ResponseWriter
	code    int
	written int
}

func (t *responseTap) WriteHeader(code int) {
	t.code = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTap) Write(body []byte) (int, error) {
	n, err := t.ResponseWriter.Write(body)
	t.written += n
	return n, err
}

func newTraceID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(buf[:])
}
