package repositories

import (
	"context"
	"time"
)

// RateDecision is the outcome of a multi-key rate check
type RateDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter counts hits per key inside a window
type RateLimiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	TooManyAttempts(ctx context.Context, key string, maxAttempts int) (bool, error)
	AvailableIn(ctx context.Context, key string) (time.Duration, error)
	Clear(ctx context.Context, key string) error
	// Attempt checks every key against maxAttempts and increments all of them
	// only when none is saturated. The check and increment are atomic.
	Attempt(ctx context.Context, keys []string, maxAttempts int, window time.Duration) (RateDecision, error)
}
