package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	domainRepos "giveora.backend/internal/domain/repositories"
	pkgredis "giveora.backend/pkg/redis"
)

// attemptScript refuses when any key is at the cap and otherwise increments
// every key, starting the window on the first hit.
// Returns {allowed, retry_after_ms}.
var attemptScript = goredis.NewScript(`
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local retry = -1
for _, key in ipairs(KEYS) do
  local current = tonumber(redis.call('GET', key) or '0')
  if current >= max then
    local ttl = redis.call('PTTL', key)
    if ttl < 0 then
      redis.call('PEXPIRE', key, window)
      ttl = window
    end
    if ttl > retry then retry = ttl end
  end
end
if retry >= 0 then
  return {0, retry}
end
for _, key in ipairs(KEYS) do
  if redis.call('INCR', key) == 1 then
    redis.call('PEXPIRE', key, window)
  end
end
return {1, 0}
`)

// RedisRateLimiter is a fixed-window hit counter keyed in Redis
type RedisRateLimiter struct {
	client *goredis.Client
	prefix string
}

// NewRedisRateLimiter creates a limiter whose keys are "<prefix>:<key>"
func NewRedisRateLimiter(client *goredis.Client, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{client: client, prefix: prefix}
}

func (l *RedisRateLimiter) key(k string) string {
	return l.prefix + ":" + k
}

func (l *RedisRateLimiter) ready() error {
	if l.client == nil {
		return pkgredis.ErrNotInitialized
	}
	return nil
}

// Hit increments key and starts its window on the first hit
func (l *RedisRateLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	k := l.key(key)
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := l.client.PExpire(ctx, k, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// TooManyAttempts reports whether key has reached maxAttempts
func (l *RedisRateLimiter) TooManyAttempts(ctx context.Context, key string, maxAttempts int) (bool, error) {
	if err := l.ready(); err != nil {
		return false, err
	}
	raw, err := l.client.Get(ctx, l.key(key)).Result()
	if err != nil {
		if pkgredis.IsNil(err) {
			return false, nil
		}
		return false, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("rate limiter counter %q: %w", key, err)
	}
	return n >= int64(maxAttempts), nil
}

// AvailableIn returns how long until key's window resets
func (l *RedisRateLimiter) AvailableIn(ctx context.Context, key string) (time.Duration, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	ttl, err := l.client.PTTL(ctx, l.key(key)).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Clear resets key
func (l *RedisRateLimiter) Clear(ctx context.Context, key string) error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.client.Del(ctx, l.key(key)).Err()
}

// Attempt checks and increments every key in one script call
func (l *RedisRateLimiter) Attempt(ctx context.Context, keys []string, maxAttempts int, window time.Duration) (domainRepos.RateDecision, error) {
	if err := l.ready(); err != nil {
		return domainRepos.RateDecision{}, err
	}
	if len(keys) == 0 {
		return domainRepos.RateDecision{Allowed: true}, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = l.key(k)
	}

	res, err := attemptScript.Run(ctx, l.client, full, maxAttempts, window.Milliseconds()).Int64Slice()
	if err != nil {
		return domainRepos.RateDecision{}, fmt.Errorf("rate limiter attempt: %w", err)
	}
	if len(res) != 2 {
		return domainRepos.RateDecision{}, fmt.Errorf("rate limiter attempt: unexpected reply %v", res)
	}
	return domainRepos.RateDecision{
		Allowed:    res[0] == 1,
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}, nil
}
