package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/interviewprep-backend/pkg/metrics"
)

// Metrics records request counts and latency keyed by the chi route pattern,
// so ids in paths do not explode label cardinality. Requests answered before
// routing, rate-limited ones included, share the "unmatched" label.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			m.Start()

			next.ServeHTTP(rec, r)

			m.Observe(r.Method, metricsRoute(r), rec.statusOrOK(), time.Since(start))
		})
	}
}

func metricsRoute(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
