package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pollblog-backend/cache"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// defaultIdleTTL bounds how long an idle key is remembered when the bucket
// never refills.
const defaultIdleTTL = 10 * time.Minute

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimiter keeps one token bucket per key in process memory. It is
// used when Redis is not configured. Keys idle long enough for their bucket
// to refill are forgotten.
type LocalRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*localEntry
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewLocalRateLimiter(limit rate.Limit, burst int) *LocalRateLimiter {
	idle := defaultIdleTTL
	if limit > 0 && limit != rate.Inf {
		idle = time.Duration(float64(burst) / float64(limit) * float64(time.Second))
		idle = max(idle, time.Second)
	}
	return &LocalRateLimiter{
		limiters: make(map[string]*localEntry),
		limit:    limit,
		burst:    burst,
		idleTTL:  idle,
		now:      time.Now,
	}
}

// NewLocalWindowLimiter approximates "limit requests per window".
func NewLocalWindowLimiter(window time.Duration, limit int) *LocalRateLimiter {
	return NewLocalRateLimiter(rate.Every(window/time.Duration(limit)), limit)
}

func (l *LocalRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &localEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1), nil
}

// Len reports how many keys are currently tracked.
func (l *LocalRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *LocalRateLimiter) sweep(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

var _ cache.RateLimiter = (*LocalRateLimiter)(nil)

// RateLimitMiddleware rejects a client with 429 once limiter says no. Limiter
// failures let the request through.
func RateLimitMiddleware(limiter cache.RateLimiter, scope string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later.",
			})
			return
		}
		c.Next()
	}
}
