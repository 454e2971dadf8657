package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/trackify-app/trackify/internal/domain/session"
)

// MetricsMiddleware records request counts and durations per navigation
// area. /metrics and /health are not recorded.
func MetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			area := string(session.AreaForPath(r.URL.Path))
			metrics.RequestDuration.WithLabelValues(area).Observe(time.Since(start).Seconds())
			metrics.RequestsTotal.WithLabelValues(r.Method, area, statusClass(rec.status)).Inc()
		})
	}
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// statusClass maps 302 to "3xx". Gate redirects and failures stay apart.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
