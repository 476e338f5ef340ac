package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter applies a per-source-IP token bucket to the provider-facing
// callback endpoints.
type RateLimiter struct {
	limiters      map[string]*rate.Limiter
	mu            sync.RWMutex
	limit         rate.Limit
	burst         int
	cleanupTicker *time.Ticker
}

// NewRateLimiter creates a rate limiter allowing requestsPerSecond per IP.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters:      make(map[string]*rate.Limiter),
		limit:         rate.Limit(requestsPerSecond),
		burst:         burst,
		cleanupTicker: time.NewTicker(10 * time.Minute),
	}
	go rl.cleanup()
	return rl
}

// cleanup periodically resets the limiter map to keep it from growing
// unbounded.
func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.mu.Lock()
		rl.limiters = make(map[string]*rate.Limiter)
		rl.mu.Unlock()
	}
}

// Stop stops the cleanup ticker.
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.RLock()
	limiter, ok := rl.limiters[ip]
	rl.mu.RUnlock()
	if ok {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, ok = rl.limiters[ip]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = limiter
	return limiter
}

// Middleware returns the gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
