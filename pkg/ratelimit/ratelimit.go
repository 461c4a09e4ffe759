// Package ratelimit throttles outbound analysis calls.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter blocks until the next call may proceed or ctx is done.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewLocal creates an in-process token bucket limiter.
func NewLocal(rps float64, burst int) (Limiter, error) {
	if rps <= 0 {
		return nil, fmt.Errorf("requests_per_second must be positive, got %v", rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst), nil
}

// Redis is a limiter shared by every process pointing at the same Redis key.
type Redis struct {
	limiter *redis_rate.Limiter
	key     string
	limit   redis_rate.Limit
}

// NewRedis creates a distributed limiter using the GCRA algorithm in Redis.
// Fractional rates are expressed over a longer period, e.g. 0.5 rps as 1 per 2s.
func NewRedis(rdb *redis.Client, key string, rps float64, burst int) (*Redis, error) {
	if rps <= 0 {
		return nil, fmt.Errorf("requests_per_second must be positive, got %v", rps)
	}
	if burst <= 0 {
		burst = 1
	}

	limit := redis_rate.Limit{Rate: int(rps), Burst: burst, Period: time.Second}
	if rps < 1 || rps != math.Trunc(rps) {
		limit.Rate = 1
		limit.Period = time.Duration(float64(time.Second) / rps)
	}

	return &Redis{
		limiter: redis_rate.NewLimiter(rdb),
		key:     key,
		limit:   limit,
	}, nil
}

// Wait polls Redis until a slot is granted, sleeping RetryAfter between attempts.
func (r *Redis) Wait(ctx context.Context) error {
	for {
		res, err := r.limiter.Allow(ctx, r.key, r.limit)
		if err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		if res.Allowed > 0 {
			return nil
		}

		timer := time.NewTimer(res.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
