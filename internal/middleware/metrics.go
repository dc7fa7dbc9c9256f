package middleware

import (
	"net/http"
	"time"

	"github.com/matchpost/matchpost/internal/metrics"
)

// Metrics returns a middleware that records request count and latency per
// chi route pattern. Using the pattern instead of the raw path keeps
// label cardinality bounded.
func Metrics(recorder metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			recorder.ObserveHTTPRequest(r.Method, routePattern(r), wrapped.status, time.Since(start))
		})
	}
}
