package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterScript increments a per-key fixed-window counter atomically. The
// Lua round-trip keeps concurrent requests from racing between the read and
// the increment.
var counterScript = redis.NewScript(`
	local key = KEYS[1]
	local max_requests = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local current_time = tonumber(ARGV[3])

	local current = redis.call('GET', key)

	if current == false then
		redis.call('SET', key, 1, 'EX', window)
		return {1, max_requests - 1, current_time + window}
	end

	current = tonumber(current)
	if current < max_requests then
		redis.call('INCR', key)
		local ttl = redis.call('TTL', key)
		return {1, max_requests - current - 1, current_time + ttl}
	end

	local ttl = redis.call('TTL', key)
	return {0, 0, current_time + ttl}
`)

// RateLimiter caps requests per caller over a fixed window, backed by Redis
// so the cap holds across instances.
type RateLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

func New(client *redis.Client, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
	}
}

// Allow reports whether a request under key fits in the current window.
// Returns the decision, remaining quota, and when the window resets.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	now := time.Now()

	result, err := counterScript.Run(
		ctx,
		rl.client,
		[]string{redisKey},
		rl.maxRequests,
		int(rl.window.Seconds()),
		now.Unix(),
	).Result()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected rate limit script result")
	}

	allowed := values[0].(int64) == 1
	remaining := int(values[1].(int64))
	reset := time.Unix(values[2].(int64), 0)

	return allowed, remaining, reset, nil
}

// MaxRequests returns the per-window cap.
func (rl *RateLimiter) MaxRequests() int {
	return rl.maxRequests
}
