package middleware

import (
	"fmt"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

// RequestMetrics receives per-request observations.
type RequestMetrics interface {
	ObserveRequest(route, status string, d time.Duration)
}

// RequestLogger emits structured logs for every HTTP request and, when
// metrics are wired, records its latency by route and status class.
func RequestLogger(logger *logging.Logger, metrics RequestMetrics) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"request_id", reqID,
				"remote_ip", r.RemoteAddr,
				"duration_ms", duration.Milliseconds(),
			)
			if metrics != nil {
				statusClass := fmt.Sprintf("%dxx", ww.Status()/100)
				metrics.ObserveRequest(r.URL.Path, statusClass, duration)
			}
		})
	}
}
