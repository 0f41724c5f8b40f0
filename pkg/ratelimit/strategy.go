package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Logger interface {
	Error(msg string, args ...any)
}

// Clock returns the current time. Swappable for tests.
type Clock func() time.Time

// RateLimiter admits at most N events per key within any trailing window.
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	// IsLimited reports whether the event for key must be rejected. Admitted
	// events are recorded; rejected ones are not.
	IsLimited(ctx context.Context, key string) (bool, error)
	Close() error
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Redis    *redis.Client // nil selects the in-memory limiter
	Logger   Logger
	Clock    Clock
}

// NewRateLimiter picks the Redis limiter when a client is configured, the
// in-memory limiter otherwise.
func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	var opts []Option
	if config.Clock != nil {
		opts = append(opts, WithClock(config.Clock))
	}

	if config.Redis != nil {
		return NewRedisRateLimiter(config.Redis, config.Requests, config.Window, config.Logger, opts...)
	}
	return NewInMemoryRateLimiter(config.Requests, config.Window, opts...)
}

type options struct {
	clock Clock
}

type Option func(*options)

func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
