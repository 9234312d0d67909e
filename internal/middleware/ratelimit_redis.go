// ratelimit_redis.go implements the Limiter interface on Redis so rate limits
// hold across replicas. Used when security.rate_limiting.redis_addr is set;
// single-replica deployments keep the in-memory bucket and skip the network
// hop entirely.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter enforces per-client limits with redis_rate's GCRA
// implementation. Counters live in Redis, so every replica sees the same
// budget for a given key.
type RedisRateLimiter struct {
	client  *redis.Client
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	rpm     int
}

// NewRedisRateLimiter connects to Redis and returns a shared-state limiter.
// The connection is verified with a short ping so a misconfigured address
// fails at startup rather than on the first request.
func NewRedisRateLimiter(addr, password string, config RateLimitConfig) (*RedisRateLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisRateLimiter{
		client:  client,
		limiter: redis_rate.NewLimiter(client),
		limit: redis_rate.Limit{
			Rate:   config.RequestsPerMinute,
			Burst:  config.BurstSize,
			Period: time.Minute,
		},
		rpm: config.RequestsPerMinute,
	}, nil
}

// Allow consumes one token for key. Redis errors fail open: an unreachable
// Redis must degrade to unthrottled service, not take the API down with it.
func (rl *RedisRateLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := rl.limiter.Allow(ctx, "ratelimit:"+key, rl.limit)
	if err != nil {
		slog.Warn("redis rate limiter unavailable, allowing request", "error", err)
		return true
	}
	return res.Allowed > 0
}

// RemainingTokens returns the remaining budget for key without consuming.
func (rl *RedisRateLimiter) RemainingTokens(key string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := rl.limiter.AllowN(ctx, "ratelimit:"+key, rl.limit, 0)
	if err != nil {
		return rl.limit.Burst
	}
	return res.Remaining
}

// Limit returns the configured requests-per-minute
func (rl *RedisRateLimiter) Limit() int {
	return rl.rpm
}

// Stop closes the Redis connection
func (rl *RedisRateLimiter) Stop() {
	if err := rl.client.Close(); err != nil {
		slog.Warn("failed to close redis client", "error", err)
	}
}
