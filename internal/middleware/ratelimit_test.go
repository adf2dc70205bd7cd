package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yogastudio/internal/auth"
)

func TestRateLimit_PerIP(t *testing.T) {
	h := RateLimit(2, 100)(okHandler())
	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1001"), "ports of one host share a budget")
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1000"))
}

func TestRateLimit_PerPrincipal(t *testing.T) {
	h := RateLimit(100, 1)(okHandler())
	do := func(addr string, id int64) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{ID: id}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1", 5))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.9:1", 5))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1", 6))
}

func TestRateLimiter_EvictsIdleKeys(t *testing.T) {
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	rl := newRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.Equal(t, 2, rl.size())

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.allow("10.0.0.3"))
	assert.Equal(t, 1, rl.size(), "idle keys are dropped once the window has passed")

	now = now.Add(30 * time.Second)
	assert.True(t, rl.allow("10.0.0.4"))
	assert.Equal(t, 2, rl.size(), "no sweep before a full window")
}
