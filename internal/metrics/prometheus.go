package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "matchpost"

// PrometheusRecorder implements Recorder on Prometheus collectors.
type PrometheusRecorder struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	rateLimited     *prometheus.CounterVec
	usersRegistered prometheus.Counter
	logins          *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	postChanges     *prometheus.CounterVec
}

// NewPrometheus creates a PrometheusRecorder and registers its collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
		usersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Successful user registrations.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_post_cache_lookups_total",
			Help:      "Match post cache lookups by result.",
		}, []string{"result"}),
		postChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_post_changes_total",
			Help:      "Match post writes by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		r.httpRequests,
		r.httpDuration,
		r.rateLimited,
		r.usersRegistered,
		r.logins,
		r.cacheLookups,
		r.postChanges,
	)

	return r
}

// ObserveHTTPRequest records one served request.
func (r *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncRateLimited counts a rejected request.
func (r *PrometheusRecorder) IncRateLimited(scope string) {
	r.rateLimited.WithLabelValues(scope).Inc()
}

// IncUserRegistered counts a new account.
func (r *PrometheusRecorder) IncUserRegistered() {
	r.usersRegistered.Inc()
}

// IncLogin counts a login attempt.
func (r *PrometheusRecorder) IncLogin(result string) {
	r.logins.WithLabelValues(result).Inc()
}

// IncMatchPostCacheHit counts a cache hit.
func (r *PrometheusRecorder) IncMatchPostCacheHit() {
	r.cacheLookups.WithLabelValues("hit").Inc()
}

// IncMatchPostCacheMiss counts a cache miss.
func (r *PrometheusRecorder) IncMatchPostCacheMiss() {
	r.cacheLookups.WithLabelValues("miss").Inc()
}

// IncMatchPostCreated counts a created post.
func (r *PrometheusRecorder) IncMatchPostCreated() {
	r.postChanges.WithLabelValues("create").Inc()
}

// IncMatchPostUpdated counts an updated post.
func (r *PrometheusRecorder) IncMatchPostUpdated() {
	r.postChanges.WithLabelValues("update").Inc()
}

// IncMatchPostDeleted counts a deleted post.
func (r *PrometheusRecorder) IncMatchPostDeleted() {
	r.postChanges.WithLabelValues("delete").Inc()
}

// Handler returns the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
