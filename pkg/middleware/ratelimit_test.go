package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func rateLimitedHandler(cfg RateLimitConfig) http.Handler {
	rl := NewRateLimiter(cfg)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return RateLimit(rl)(next)
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	h := rateLimitedHandler(RateLimitConfig{RequestsPerSecond: 1, Burst: 3, TTL: time.Minute})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}
}

func TestRateLimit_BlocksBeyondBurst(t *testing.T) {
	h := rateLimitedHandler(RateLimitConfig{RequestsPerSecond: 0.1, Burst: 2, TTL: time.Minute})

	var last int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		h.ServeHTTP(rec, req)
		last = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRateLimit_SeparateClientsSeparateBuckets(t *testing.T) {
	h := rateLimitedHandler(RateLimitConfig{RequestsPerSecond: 0.1, Burst: 1, TTL: time.Minute})

	first := httptest.NewRecorder()
	reqA := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	reqA.RemoteAddr = "10.0.0.3:1234"
	h.ServeHTTP(first, reqA)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	reqB := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	reqB.RemoteAddr = "10.0.0.4:1234"
	h.ServeHTTP(second, reqB)
	assert.Equal(t, http.StatusOK, second.Code, "a different client has its own bucket")
}

func TestRateLimit_ForwardedForTakesPrecedence(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.1, Burst: 1, TTL: time.Minute})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	assert.Equal(t, "203.0.113.9", clientIP(req))
	assert.True(t, rl.Allow("203.0.113.9"))
	assert.False(t, rl.Allow("203.0.113.9"))
}
