//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newSessionClient(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := goredis.ParseURL(uri)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestSessionProvider_RoundTripsThroughRedis(t *testing.T) {
	ctx := context.Background()
	client := newSessionClient(t)
	p := &sessionProvider{client: client}
	require.NoError(t, p.Init(60, ""))

	exists, err := p.Exist("sid-1")
	require.NoError(t, err)
	assert.False(t, exists)

	store, err := p.Read("sid-1")
	require.NoError(t, err)
	require.NoError(t, store.Set("csrf:sid-1", "token"))
	require.NoError(t, store.Set("csrf:sid-1:expires", time.Now().Add(time.Hour).UnixNano()))
	require.NoError(t, store.Release())

	exists, err = p.Exist("sid-1")
	require.NoError(t, err)
	assert.True(t, exists)

	ttl, err := client.TTL(ctx, "session:sid-1").Result()
	require.NoError(t, err)
	assert.InDelta(t, 60, ttl.Seconds(), 2)

	// Another instance reads the same session.
	other := &sessionProvider{client: client, lifetime: time.Minute}
	loaded, err := other.Read("sid-1")
	require.NoError(t, err)
	assert.Equal(t, "token", loaded.Get("csrf:sid-1"))
	assert.IsType(t, int64(0), loaded.Get("csrf:sid-1:expires"))

	renamed, err := p.Regenerate("sid-1", "sid-2")
	require.NoError(t, err)
	assert.Equal(t, "sid-2", renamed.ID())
	assert.Equal(t, "token", renamed.Get("csrf:sid-1"))

	count, err := p.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, p.Destroy("sid-2"))
	exists, err = p.Exist("sid-2")
	require.NoError(t, err)
	assert.False(t, exists)
}
