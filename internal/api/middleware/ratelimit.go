// Package middleware provides HTTP middleware for the directory API
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for the rate limiting middleware
type RateLimitConfig struct {
	// RequestLimit is the number of requests allowed per key in one window
	RequestLimit int
	// WindowSize is the length of the sliding window
	WindowSize time.Duration
	// KeyFunc picks the rate limit key. Defaults to the client IP.
	KeyFunc httprate.KeyFunc
}

// Enabled reports whether the configuration limits anything
func (c RateLimitConfig) Enabled() bool {
	return c.RequestLimit > 0 && c.WindowSize > 0
}

// RateLimit returns a sliding-window limiter that answers 429 with a JSON
// error body and a Retry-After header
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	retryAfter := strconv.Itoa(max(1, int(cfg.WindowSize.Seconds())))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded, try again later"}`))
		}),
	)
}
