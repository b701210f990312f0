package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuota_CheckThenConsume(t *testing.T) {
	ctx := context.Background()
	q := Quota{Counter: NewMemoryCounter(), Limit: 3}

	for want := int64(2); want >= 0; want-- {
		_, ok, err := q.Check(ctx, "203.0.113.7")
		require.NoError(t, err)
		require.True(t, ok)

		remaining, err := q.Consume(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, want, remaining)
	}

	remaining, ok, err := q.Check(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), remaining)

	// Overshoot from concurrent callers never reports negative.
	remaining, err = q.Consume(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	// Other clients are unaffected.
	remaining, ok, _ = q.Check(ctx, "198.51.100.1")
	assert.True(t, ok)
	assert.Equal(t, int64(3), remaining)
}

func TestQuota_CheckDoesNotSpend(t *testing.T) {
	ctx := context.Background()
	q := Quota{Counter: NewMemoryCounter(), Limit: 1}

	for i := 0; i < 5; i++ {
		_, ok, err := q.Check(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestMemoryCounter_ResetsAtUTCMidnight(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)
	c := NewMemoryCounter()
	c.now = func() time.Time { return now }

	_, _ = c.Hit(ctx, "ip")
	n, _ := c.Hit(ctx, "ip")
	assert.Equal(t, int64(2), n)

	now = now.Add(2 * time.Minute)
	n, err := c.Count(ctx, "ip")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestMemoryCounter_DayIsUTC(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	// 00:30 in Paris is still the previous day in UTC.
	assert.Equal(t, "2026-03-09", utcDay(time.Date(2026, 3, 10, 0, 30, 0, 0, paris)))
}

func TestRedisCounter(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCounter(client, "storefront:test:"+time.Now().Format("150405.000"))
	t.Cleanup(func() { client.Del(ctx, c.key("k")) })

	n, err := c.Count(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = c.Hit(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = c.Hit(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ttl, err := client.TTL(ctx, c.key("k")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 47*time.Hour)
}
