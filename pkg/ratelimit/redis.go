package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// slidingWindowScript prunes, counts and conditionally records in one round
// trip so concurrent processes observe a consistent window.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

if redis.call('ZCARD', key) >= limit then
	return 1
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, ttl)
return 0
`)

// RedisRateLimiter applies the sliding window to a sorted set per key, which
// lets several processes share one budget.
type RedisRateLimiter struct {
	client    *redis.Client
	requests  int
	window    time.Duration
	keyPrefix string
	logger    Logger
	clock     Clock
}

func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration, logger Logger, opts ...Option) *RedisRateLimiter {
	o := buildOptions(opts)
	return &RedisRateLimiter{
		client:    client,
		requests:  requests,
		window:    window,
		keyPrefix: "ratelimit:",
		logger:    logger,
		clock:     o.clock,
	}
}

func (r *RedisRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *RedisRateLimiter) IsLimited(ctx context.Context, key string) (bool, error) {
	fullKey := key
	if !strings.HasPrefix(key, r.keyPrefix) {
		fullKey = r.keyPrefix + key
	}

	member, err := uniqueMember()
	if err != nil {
		return false, fmt.Errorf("rate limiter member id: %w", err)
	}

	now := r.clock().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, r.client, []string{fullKey},
		now, r.window.Milliseconds(), r.requests, (2 * r.window).Milliseconds(), member,
	).Int64()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Redis rate limit script execution failed", "key", fullKey, "error", err)
		}
		return false, fmt.Errorf("rate limiter Redis error: %w", err)
	}

	return res == 1, nil
}

// The Redis client is owned by the cache and closed there.
func (r *RedisRateLimiter) Close() error {
	return nil
}

func uniqueMember() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
