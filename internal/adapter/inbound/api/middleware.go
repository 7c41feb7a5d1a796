package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jlov7/Switchboard/internal/domain/auth"
)

// requestIDContextKey is the type for the request ID context key.
type requestIDContextKey struct{}

// loggerContextKey is the type for the enriched logger context key.
type loggerContextKey struct{}

// RequestIDKey is the context key for the request ID.
var RequestIDKey = requestIDContextKey{}

// LoggerKey is the context key for the enriched logger.
var LoggerKey = loggerContextKey{}

// RequestIDMiddleware extracts or generates a request ID and enriches the
// logger. The request ID is stored in context using RequestIDKey and echoed
// back in the X-Request-ID response header.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			enrichedLogger := logger.With("request_id", requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = context.WithValue(ctx, LoggerKey, enrichedLogger)

			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext retrieves the enriched logger from context.
// Returns slog.Default() if no logger is in context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// MetricsMiddleware wraps a handler to record request counts and durations
// under a fixed path label.
func MetricsMiddleware(metrics *Metrics, path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			metrics.RequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
			metrics.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// ReviewerAuthMiddleware guards reviewer endpoints with bearer-key
// authentication. An empty keyring leaves the endpoints open; otherwise the
// Authorization header must carry a key that verifies against one of the
// configured hashes.
func ReviewerAuthMiddleware(keyring *auth.Keyring, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyring.Empty() {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			rawKey, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || !keyring.Verify(rawKey) {
				logger.Warn("reviewer authentication failed", "path", r.URL.Path)
				respondError(w, logger, http.StatusUnauthorized, "invalid reviewer key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
