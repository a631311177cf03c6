package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitResult is the outcome of one sliding window check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int64
	RetryIn   time.Duration
}

// entries older than the window are trimmed before counting
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call("zremrangebyscore", key, "-inf", window_start)
	local current = redis.call("zcard", key)

	if current < limit then
		redis.call("zadd", key, now, now .. "-" .. math.random())
		redis.call("pexpire", key, window_ms)
		return {1, limit - current - 1}
	end

	local oldest = redis.call("zrange", key, 0, 0, "WITHSCORES")
	if #oldest > 0 then
		return {0, 0, oldest[2]}
	end
	return {0, 0, 0}
`)

// RateLimiter counts requests per key in a sorted set so every replica
// shares one window.
type RateLimiter struct {
	client    *Client
	keyPrefix string
}

func NewRateLimiter(client *Client, keyPrefix string) *RateLimiter {
	if keyPrefix == "" {
		keyPrefix = "fern:ratelimit:"
	}
	return &RateLimiter{client: client, keyPrefix: keyPrefix}
}

// Allow records one request for key and reports whether it fits in limit per window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (RateLimitResult, error) {
	now := time.Now()

	result, err := slidingWindow.Run(ctx, r.client.rdb, []string{r.keyPrefix + key},
		now.UnixMilli(),
		now.Add(-window).UnixMilli(),
		limit,
		window.Milliseconds(),
	).Slice()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to check rate limit for %s: %w", key, err)
	}
	if len(result) < 2 {
		return RateLimitResult{}, fmt.Errorf("unexpected rate limit reply of length %d", len(result))
	}

	allowed, err := toInt64(result[0])
	if err != nil {
		return RateLimitResult{}, err
	}
	remaining, err := toInt64(result[1])
	if err != nil {
		return RateLimitResult{}, err
	}

	res := RateLimitResult{Allowed: allowed == 1, Remaining: remaining}
	if !res.Allowed && len(result) > 2 {
		oldest, err := toInt64(result[2])
		if err != nil {
			return RateLimitResult{}, err
		}
		if oldest > 0 {
			res.RetryIn = time.UnixMilli(oldest).Add(window).Sub(now)
		}
	}
	return res, nil
}

// lua numbers come back as int64, but WITHSCORES members are strings
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
			return parsed, nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("unexpected numeric reply %q", n)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}
