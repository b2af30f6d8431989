package oauth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateCache_SingleUse(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStateCache()

	ok, err := c.Consume(ctx, "fitbit", "u1")
	require.NoError(t, err)
	assert.False(t, ok, "nothing issued yet")

	require.NoError(t, c.Issue(ctx, "fitbit", "u1", time.Minute))

	ok, _ = c.Consume(ctx, "oura", "u1")
	assert.False(t, ok, "marker is scoped to provider")

	ok, _ = c.Consume(ctx, "fitbit", "u1")
	assert.True(t, ok)

	ok, _ = c.Consume(ctx, "fitbit", "u1")
	assert.False(t, ok, "marker must be single use")
}

func TestMemoryStateCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryStateCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Issue(ctx, "oura", "u1", 10*time.Minute))
	now = now.Add(11 * time.Minute)

	ok, err := c.Consume(ctx, "oura", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNopStateCache(t *testing.T) {
	ok, err := NopStateCache{}.Consume(context.Background(), "fitbit", "anyone")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewStateCache(t *testing.T) {
	c, err := NewStateCache(context.Background(), StateStoreNone, "")
	require.NoError(t, err)
	assert.IsType(t, NopStateCache{}, c)

	c, err = NewStateCache(context.Background(), StateStoreMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStateCache{}, c)

	_, err = NewStateCache(context.Background(), "etcd", "")
	assert.Error(t, err)
}

func TestRedisStateCache(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: %v", err)
	}
	c := NewRedisStateCacheFromClient(client)
	t.Cleanup(func() { _ = c.Close() })

	bg := context.Background()
	require.NoError(t, c.Issue(bg, "fitbit", "redis-user", time.Minute))

	ok, err := c.Consume(bg, "fitbit", "redis-user")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Consume(bg, "fitbit", "redis-user")
	require.NoError(t, err)
	assert.False(t, ok)
}
