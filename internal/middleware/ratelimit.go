package middleware

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// RatePerSecond is the steady-state limit per authenticated caller.
	RatePerSecond float64
	// Burst is the max requests allowed in a burst.
	Burst int
	// CleanupInterval is how often to drop idle limiters.
	CleanupInterval time.Duration
	// MaxAge is how long to keep a limiter after last use.
	MaxAge time.Duration
}

// DefaultRateLimitConfig returns sensible defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RatePerSecond:   10,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

type rateLimiterEntry struct {
	limiter      *rate.Limiter
	lastSeenNano atomic.Int64
}

// RateLimiter manages per-key token buckets.
type RateLimiter struct {
	config   RateLimitConfig
	limiters sync.Map // map[string]*rateLimiterEntry
	stopCh   chan struct{}
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config: config,
		stopCh: make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rl.limiters.Range(func(key, value any) bool {
				entry := value.(*rateLimiterEntry)
				lastSeen := time.Unix(0, entry.lastSeenNano.Load())
				if now.Sub(lastSeen) > rl.config.MaxAge {
					rl.limiters.Delete(key)
				}
				return true
			})
		case <-rl.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Allow checks whether a request under key fits the given rate.
func (rl *RateLimiter) Allow(key string, ratePerSecond float64, burst int) bool {
	now := time.Now().UnixNano()

	if val, ok := rl.limiters.Load(key); ok {
		entry := val.(*rateLimiterEntry)
		entry.lastSeenNano.Store(now)
		return entry.limiter.Allow()
	}

	entry := &rateLimiterEntry{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
	entry.lastSeenNano.Store(now)
	actual, _ := rl.limiters.LoadOrStore(key, entry)
	return actual.(*rateLimiterEntry).limiter.Allow()
}

// RateLimit enforces the given rate per authenticated user, falling back
// to the client IP for unauthenticated requests. The scope keeps buckets
// with different rates apart; two middlewares sharing a scope share
// buckets.
func RateLimit(rl *RateLimiter, scope string, ratePerSecond float64, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var key string
			if ident := GetIdentity(r.Context()); ident != nil {
				key = scope + ":user:" + ident.UserID
			} else {
				host, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					host = r.RemoteAddr
				}
				key = scope + ":ip:" + host
			}

			if !rl.Allow(key, ratePerSecond, burst) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
