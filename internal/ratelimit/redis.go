package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowScript increments the counter and starts its expiry on the first
// hit, so the key disappears once the window has elapsed.
var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// redisTimeout bounds a single limiter round trip.
const redisTimeout = 2 * time.Second

// RedisStore is a Limiter whose counters live in Redis, so every instance
// behind a load balancer sees the same totals. When Redis is unreachable it
// answers from Fallback instead of failing the request.
type RedisStore struct {
	client   *redis.Client
	limit    int
	window   time.Duration
	prefix   string
	fallback Limiter
}

// NewRedisStore creates a Redis-backed store. fallback may be nil, in which
// case Redis errors are returned to the caller.
func NewRedisStore(client *redis.Client, limit int, window time.Duration, fallback Limiter) *RedisStore {
	return &RedisStore{
		client:   client,
		limit:    limit,
		window:   window,
		prefix:   "ratelimit:",
		fallback: fallback,
	}
}

// Allow counts a request for key in Redis.
func (s *RedisStore) Allow(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	count, err := windowScript.Run(ctx, s.client, []string{s.prefix + key}, s.window.Milliseconds()).Int64()
	if err != nil {
		if s.fallback != nil {
			slog.Warn("redis rate limiter unavailable, using in-memory fallback", slog.Any("error", err))
			return s.fallback.Allow(ctx, key)
		}
		return false, fmt.Errorf("running rate limit script: %w", err)
	}
	return count <= int64(s.limit), nil
}
