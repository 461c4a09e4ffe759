package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocal_RejectsNonPositiveRate(t *testing.T) {
	_, err := NewLocal(0, 1)
	require.Error(t, err)
}

func TestLocal_BurstThenThrottle(t *testing.T) {
	l, err := NewLocal(1, 2)
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "burst is served immediately")

	// The bucket is empty; a short deadline cannot be met.
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(short))
}

func TestNewRedis_Limits(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()

	_, err := NewRedis(rdb, "k", -1, 1)
	require.Error(t, err)

	l, err := NewRedis(rdb, "k", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, l.limit.Rate)
	assert.Equal(t, 1, l.limit.Burst)
	assert.Equal(t, time.Second, l.limit.Period)

	l, err = NewRedis(rdb, "k", 0.5, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, l.limit.Rate)
	assert.Equal(t, 2*time.Second, l.limit.Period)
}

func TestRedis_WaitReportsBackendError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer rdb.Close()

	l, err := NewRedis(rdb, "k", 1, 1)
	require.NoError(t, err)

	err = l.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
