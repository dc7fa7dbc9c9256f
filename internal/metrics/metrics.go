// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
type Recorder interface {
	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
	IncRateLimited(scope string)

	// Account metrics
	IncUserRegistered()
	IncLogin(result string) // result: "success" or "failure"

	// Match post metrics
	IncMatchPostCacheHit()
	IncMatchPostCacheMiss()
	IncMatchPostCreated()
	IncMatchPostUpdated()
	IncMatchPostDeleted()
}

// Login results.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)
