package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/internal/interfaces/http/response"
	"giveora.backend/pkg/metrics"
	"golang.org/x/time/rate"
)

// IPRateLimiter throttles requests per client IP with a token bucket.
// Idle buckets are evicted after ttl; the sweep runs at most once per ttl.
type IPRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSeen  map[string]time.Time
	rate      rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewIPRateLimiter creates a per-IP limiter allowing r requests per second with the given burst
func NewIPRateLimiter(r float64, burst int, ttl time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(r),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Middleware rejects requests over the limit with 429
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			metrics.RateLimited.WithLabelValues("ip").Inc()
			response.Error(c, domainerrors.TooManyRequests(domainerrors.CodeRateLimited, "Too many requests. Please slow down.", domainerrors.ErrRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Allow reports whether ip may make a request now
func (l *IPRateLimiter) Allow(ip string) bool {
	return l.limiter(ip).AllowN(l.now(), 1)
}

func (l *IPRateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if limiter, ok := l.limiters[ip]; ok {
		l.lastSeen[ip] = now
		return limiter
	}
	limiter := rate.NewLimiter(l.rate, l.burst)
	l.limiters[ip] = limiter
	l.lastSeen[ip] = now
	l.evict(now)
	return limiter
}

func (l *IPRateLimiter) evict(now time.Time) {
	if l.ttl == 0 || now.Sub(l.lastSweep) < l.ttl {
		return
	}
	l.lastSweep = now
	cutoff := now.Add(-l.ttl)
	for ip, last := range l.lastSeen {
		if last.Before(cutoff) {
			delete(l.lastSeen, ip)
			delete(l.limiters, ip)
		}
	}
}

// Len returns the number of tracked clients
func (l *IPRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
