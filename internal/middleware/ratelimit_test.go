package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpost/matchpost/internal/cache"
	"github.com/matchpost/matchpost/internal/metrics"
)

type stubLimiter struct {
	result *cache.RateLimitResult
	err    error
	calls  int
	scope  string
	ip     string
}

func (s *stubLimiter) CheckRateLimit(_ context.Context, scope, clientIP string, _, _ int) (*cache.RateLimitResult, error) {
	s.calls++
	s.scope, s.ip = scope, clientIP
	return s.result, s.err
}

// countingRecorder counts rate-limit rejections and ignores everything else.
type countingRecorder struct {
	metrics.Recorder
	limited map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{Recorder: metrics.NewNoop(), limited: map[string]int{}}
}

func (c *countingRecorder) IncRateLimited(scope string) { c.limited[scope]++ }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitIP_Allowed(t *testing.T) {
	limiter := &stubLimiter{result: &cache.RateLimitResult{Allowed: true, Remaining: 9, ResetAt: time.Unix(1700000000, 0)}}
	mw := RateLimitIP(RateLimitConfig{Logger: discardLogger(), Limiter: limiter, Scope: "auth", Enabled: true, RPS: 5, Burst: 10})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auth", limiter.scope)
	assert.Equal(t, "203.0.113.9", limiter.ip)
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1700000000", rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimitIP_Exceeded(t *testing.T) {
	limiter := &stubLimiter{result: &cache.RateLimitResult{Allowed: false, RetryAfter: 3 * time.Second, ResetAt: time.Now()}}
	recorder := newCountingRecorder()
	mw := RateLimitIP(RateLimitConfig{Logger: discardLogger(), Limiter: limiter, Recorder: recorder, Scope: "auth", Enabled: true, RPS: 5, Burst: 10})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMITED"`)
	assert.Equal(t, 1, recorder.limited["auth"])
}

func TestRateLimitIP_FailsOpen(t *testing.T) {
	limiter := &stubLimiter{
		result: &cache.RateLimitResult{Allowed: true},
		err:    errors.New("redis: connection refused"),
	}
	mw := RateLimitIP(RateLimitConfig{Logger: discardLogger(), Limiter: limiter, Scope: "auth", Enabled: true, RPS: 5, Burst: 10})

	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, limiter.calls)
}

func TestRateLimitIP_Disabled(t *testing.T) {
	limiter := &stubLimiter{}
	mw := RateLimitIP(RateLimitConfig{Logger: discardLogger(), Limiter: limiter, Scope: "auth", Enabled: false})

	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, limiter.calls)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 4, retryAfterSeconds(4*time.Second))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))

	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", clientIP(req))
}
