//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisRateLimiter_SlidingWindow(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)
	clock := newFakeClock()

	limiter := NewRedisRateLimiter(client, 5, time.Hour, nil, WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		limited, err := limiter.IsLimited(ctx, "signup:198.51.100.1")
		require.NoError(t, err)
		assert.False(t, limited, "request %d", i+1)
	}

	limited, err := limiter.IsLimited(ctx, "signup:198.51.100.1")
	require.NoError(t, err)
	assert.True(t, limited)

	count, err := client.ZCard(ctx, "ratelimit:signup:198.51.100.1").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 5, count, "rejected attempt must not be recorded")

	clock.Advance(time.Hour + time.Second)
	limited, err = limiter.IsLimited(ctx, "signup:198.51.100.1")
	require.NoError(t, err)
	assert.False(t, limited)

	ttl, err := client.PTTL(ctx, "ratelimit:signup:198.51.100.1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Hour)
}

func TestRedisRateLimiter_ReportsBackendErrors(t *testing.T) {
	client := newRedisClient(t)
	limiter := NewRedisRateLimiter(client, 5, time.Hour, nil)
	require.NoError(t, client.Close())

	_, err := limiter.IsLimited(context.Background(), "k")
	assert.Error(t, err)
}
