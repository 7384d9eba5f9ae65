package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"realty-backend/internal/metrics"
)

// Metrics labels requests by chi route pattern so ids in paths do not explode cardinality.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			metrics.ObserveHTTP(route, r.Method, rec.Status(), time.Since(start))
		})
	}
}
