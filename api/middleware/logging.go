package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/printforge/quickorder-backend/pkg/logger"
)

// Logging attaches request-scoped fields to the context logger and
// emits one line per request with status and latency.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logg.WithRequestID(r.Context(), RequestIDFrom(r.Context()))
			ctx = logg.WithFields(ctx, map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			ctx = logg.WithFields(ctx, map[string]any{
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"bytes":       ww.BytesWritten(),
			})
			logg.Info(ctx, "request completed")
		})
	}
}
