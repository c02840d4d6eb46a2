package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atlastravel/pricingservice/internal/cache"
)

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config holds rate limiting configuration
type Config struct {
	RequestsPerMinute int
	Enabled           bool
}

// DefaultConfig returns a default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 300,
		Enabled:           true,
	}
}

// RedisRateLimiter implements a fixed one-minute window over Redis.
type RedisRateLimiter struct {
	cache  *cache.Cache
	limit  int
	logger *zap.Logger
}

// NewRedisRateLimiter creates a Redis-backed rate limiter.
func NewRedisRateLimiter(c *cache.Cache, cfg Config, logger *zap.Logger) *RedisRateLimiter {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = DefaultConfig().RequestsPerMinute
	}
	return &RedisRateLimiter{cache: c, limit: limit, logger: logger}
}

// Allow checks if a request is allowed based on the rate limit.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := fmt.Sprintf("rl:%s", key)

	count, err := r.cache.Incr(ctx, windowKey)
	if err != nil {
		r.logger.Error("failed to increment rate limit counter",
			zap.Error(err),
			zap.String("key", windowKey))
		return false, fmt.Errorf("rate limit error: %w", err)
	}

	// First request in the window starts the clock.
	if count == 1 {
		if err := r.cache.Expire(ctx, windowKey, time.Minute); err != nil {
			r.logger.Error("failed to set rate limit expiration",
				zap.Error(err),
				zap.String("key", windowKey))
		}
	}

	return count <= int64(r.limit), nil
}

// NoopRateLimiter allows everything; used when Redis is unavailable.
type NoopRateLimiter struct{}

func (NoopRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}
