// Package factory builds rate limiters that share the application's cache.
package factory

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spiralwrks/spiralworks.ai/pkg/ratelimit"
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RateLimiterFactory interface {
	CreateRateLimiter(requests int, window time.Duration) ratelimit.RateLimiter
}

// DefaultRateLimiterFactory hands out Redis-backed limiters when the cache
// exposes a Redis client and in-memory limiters otherwise.
type DefaultRateLimiterFactory struct {
	redis  *redis.Client
	logger ratelimit.Logger
	clock  ratelimit.Clock
}

func NewDefaultRateLimiterFactory(cache Cache, logger ratelimit.Logger) *DefaultRateLimiterFactory {
	f := &DefaultRateLimiterFactory{logger: logger}
	if provider, ok := cache.(RedisClientProvider); ok {
		f.redis = provider.GetClient()
	}
	return f
}

// WithClock makes every limiter created afterwards use clock.
func (f *DefaultRateLimiterFactory) WithClock(clock ratelimit.Clock) *DefaultRateLimiterFactory {
	f.clock = clock
	return f
}

func (f *DefaultRateLimiterFactory) Distributed() bool {
	return f.redis != nil
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter(requests int, window time.Duration) ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: requests,
		Window:   window,
		Redis:    f.redis,
		Logger:   f.logger,
		Clock:    f.clock,
	})
}
