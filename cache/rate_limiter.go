package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter decides whether one more request from key may pass.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const tokenBucketScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local period = 1

local tokens_key = key .. ":tokens"
local timestamp_key = key .. ":ts"

local tokens = tonumber(redis.call("get", tokens_key) or burst)
local last_update = tonumber(redis.call("get", timestamp_key) or 0)

local elapsed = math.max(0, now - last_update)
local new_tokens = math.min(burst, tokens + elapsed * rate)

if new_tokens < 1 then
	return 0
end

new_tokens = new_tokens - 1

redis.call("setex", tokens_key, period * 2, new_tokens)
redis.call("setex", timestamp_key, period * 2, now)

return 1
`

// TokenBucketRateLimiter refills rate tokens per second up to burst.
type TokenBucketRateLimiter struct {
	redisClient RedisClient
	prefix      string
	rate        int
	burst       int
	now         func() time.Time
}

func NewTokenBucketRateLimiter(client RedisClient, prefix string, rate, burst int) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		redisClient: client,
		prefix:      fmt.Sprintf("rate_limit:%s", prefix),
		rate:        rate,
		burst:       burst,
		now:         time.Now,
	}
}

func (l *TokenBucketRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.redisClient == nil {
		return false, ErrRedisNotAvailable
	}

	keys := []string{l.prefix + ":" + key}
	args := []interface{}{l.now().Unix(), l.rate, l.burst}

	result, err := l.redisClient.Eval(ctx, tokenBucketScript, keys, args...).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// SlidingWindowRateLimiter allows at most limit requests per key in any window.
type SlidingWindowRateLimiter struct {
	redisClient RedisClient
	prefix      string
	windowSize  time.Duration
	limit       int
	now         func() time.Time
}

func NewSlidingWindowRateLimiter(client RedisClient, prefix string, windowSize time.Duration, limit int) *SlidingWindowRateLimiter {
	return &SlidingWindowRateLimiter{
		redisClient: client,
		prefix:      fmt.Sprintf("sliding_window:%s", prefix),
		windowSize:  windowSize,
		limit:       limit,
		now:         time.Now,
	}
}

func (l *SlidingWindowRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.redisClient == nil {
		return false, ErrRedisNotAvailable
	}

	setKey := l.prefix + ":" + key
	now := l.now().UnixMilli()
	windowStart := now - l.windowSize.Milliseconds()
	requestID := uuid.New().String()

	pipe := l.redisClient.Pipeline()
	pipe.ZAdd(ctx, setKey, redis.Z{Score: float64(now), Member: requestID})
	pipe.ZRemRangeByScore(ctx, setKey, "0", strconv.FormatInt(windowStart, 10))
	count := pipe.ZCard(ctx, setKey)
	pipe.Expire(ctx, setKey, l.windowSize*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if count.Val() > int64(l.limit) {
		l.redisClient.ZRem(ctx, setKey, requestID)
		return false, nil
	}
	return true, nil
}
