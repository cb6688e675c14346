package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/soukly/platform/internal/observability"
)

// RequestLogger emits one structured line per request through the app's slog
// pipeline, so request logs pick up trace context like everything else.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := ""
			if rc := chi.RouteContext(r.Context()); rc != nil {
				route = rc.RoutePattern()
			}
			observability.RecordRequestDuration(r.Context(), route, time.Since(start).Seconds())

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
				"request_id", chimiddleware.GetReqID(r.Context()),
				"client_ip", ClientIP(r),
				"user_agent", r.UserAgent(),
			}

			if status >= http.StatusInternalServerError {
				logger.ErrorContext(r.Context(), "http.request", attrs...)
				return
			}
			logger.InfoContext(r.Context(), "http.request", attrs...)
		})
	}
}
