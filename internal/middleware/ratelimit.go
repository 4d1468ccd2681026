package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bryanwahyu/propvest/internal/domain/identity"
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// RateLimiter keeps one token bucket per caller key.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

// NewRateLimiter allows rps requests per second per key with the given burst.
func NewRateLimiter(rps float64, burst int, idleTTL time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &RateLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
	}
}

func (rl *RateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	e, ok := rl.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.entries[key] = e
	}
	e.lastUse = now
	return e.limiter
}

func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()
	return rl.get(key, now).AllowN(now, 1)
}

// Sweep drops limiters idle for longer than the TTL and returns how many remain.
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, e := range rl.entries {
		if now.Sub(e.lastUse) > rl.idleTTL {
			delete(rl.entries, key)
		}
	}
	return len(rl.entries)
}

// Run sweeps idle limiters until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Sweep(now)
		}
	}
}

// Middleware limits per user when authenticated and per client IP otherwise.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + clientIP(r)
		if p, ok := identity.FromContext(r.Context()); ok {
			key = "user:" + p.UserID
		}
		if !rl.Allow(key) {
			retry := 1
			if rl.limit > 0 {
				retry = int(1/float64(rl.limit)) + 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			WriteError(w, http.StatusTooManyRequests, "rate_limited", "rate_limited", "rate limit exceeded, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
