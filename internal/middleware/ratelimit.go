package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yogastudio/internal/auth"
)

const (
	rateLimitWindow  = time.Minute
	rateLimitMaxIP   = 300
	rateLimitMaxUser = 120
)

// rateLimiter is a per-key sliding window counter. Keys with no hit inside
// the window are swept at most once per window.
type rateLimiter struct {
	mu        sync.Mutex
	times     map[string][]time.Time
	max       int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{times: make(map[string][]time.Time), max: max, window: window, now: time.Now}
}

func (r *rateLimiter) allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	cutoff := now.Add(-r.window)
	if now.Sub(r.lastSweep) >= r.window {
		r.sweep(cutoff)
		r.lastSweep = now
	}
	slice := r.times[key]
	i := 0
	for _, t := range slice {
		if t.After(cutoff) {
			slice[i] = t
			i++
		}
	}
	slice = slice[:i]
	if len(slice) >= r.max {
		r.times[key] = slice
		return false
	}
	r.times[key] = append(slice, now)
	return true
}

func (r *rateLimiter) sweep(cutoff time.Time) {
	for k, hits := range r.times {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(r.times, k)
		}
	}
}

func (r *rateLimiter) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.times)
}

// RateLimit limits requests per client IP and, once Authenticate ran, per principal.
// Exceeding either budget answers 429. Non-positive limits use the defaults.
func RateLimit(maxPerIP, maxPerUser int) func(http.Handler) http.Handler {
	if maxPerIP <= 0 {
		maxPerIP = rateLimitMaxIP
	}
	if maxPerUser <= 0 {
		maxPerUser = rateLimitMaxUser
	}
	byIP := newRateLimiter(maxPerIP, rateLimitWindow)
	byUser := newRateLimiter(maxPerUser, rateLimitWindow)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !byIP.allow(clientIP(r)) {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			if p := auth.PrincipalFrom(r.Context()); p != nil {
				if !byUser.allow("u:" + strconv.FormatInt(p.ID, 10)) {
					http.Error(w, "too many requests", http.StatusTooManyRequests)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr (chi's RealIP may already have).
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
