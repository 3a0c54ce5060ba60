package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property: within one window exactly `limit` attempts are admitted
func TestProperty_MemoryLimiterAdmitsExactlyLimit(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("attempts beyond the limit are rejected", prop.ForAll(
		func(limit int, extra int) bool {
			l := NewMemoryLimiter(limit, time.Minute)
			allowed := 0
			for i := 0; i < limit+extra; i++ {
				res, err := l.Allow(context.Background(), "login:10.0.0.1")
				if err != nil {
					return false
				}
				if res.Allowed {
					allowed++
				} else if res.RetryAfter <= 0 {
					return false
				}
			}
			return allowed == limit
		},
		gen.IntRange(1, 50),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLimiter(5, 15*time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, _ := l.Allow(ctx, "login:1.2.3.4")
		assert.True(t, res.Allowed)
		assert.Equal(t, 4-i, res.Remaining)
	}

	now = now.Add(10 * time.Minute)
	res, _ := l.Allow(ctx, "login:1.2.3.4")
	assert.False(t, res.Allowed)
	assert.Equal(t, 5*time.Minute, res.RetryAfter)

	// other clients are counted separately
	res, _ = l.Allow(ctx, "login:5.6.7.8")
	assert.True(t, res.Allowed)

	now = now.Add(5 * time.Minute)
	res, _ = l.Allow(ctx, "login:1.2.3.4")
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_BlocksAfterLimit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiter(client, "ratelimit", 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, time.Minute, res.RetryAfter)

	mr.FastForward(time.Minute)
	res, err = l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_RepairsCounterWithoutExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	// a counter past the limit that lost its TTL, e.g. after a crash mid-update
	require.NoError(t, mr.Set("ratelimit:login:5.6.7.8", "9"))
	require.Zero(t, mr.TTL("ratelimit:login:5.6.7.8"))

	l := NewRedisLimiter(client, "ratelimit", 3, time.Minute)
	ctx := context.Background()

	res, err := l.Allow(ctx, "login:5.6.7.8")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:login:5.6.7.8"))

	mr.FastForward(time.Minute)
	res, err = l.Allow(ctx, "login:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_ReportsBackendFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	_, err = NewRedisLimiter(client, "ratelimit", 3, time.Minute).Allow(context.Background(), "k")
	assert.Error(t, err)
}
