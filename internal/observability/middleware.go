package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// MetricsMiddleware records request counts and latencies for the
// observability router (metrics and health endpoints).
func MetricsMiddleware(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			HttpRequestsTotal.
				WithLabelValues(service, r.Method, r.URL.Path, strconv.Itoa(ww.Status())).
				Inc()
			HttpRequestDuration.
				WithLabelValues(service, r.Method, r.URL.Path).
				Observe(time.Since(start).Seconds())
		})
	}
}
