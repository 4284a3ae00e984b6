package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// nullValue marks a cached miss so repeated lookups of absent rows stay off the database.
const nullValue = "NULL"

// HotCache is a read-through JSON cache with stampede protection.
type HotCache struct {
	redisClient RedisClient
	lockService *DistributedLockService
	logger      *slog.Logger
}

func NewHotCache(client RedisClient, lockService *DistributedLockService, logger *slog.Logger) *HotCache {
	return &HotCache{
		redisClient: client,
		lockService: lockService,
		logger:      logger,
	}
}

// GetOrLoad returns the cached value for key, calling loader on a miss. A nil
// result from loader is cached as a miss for a quarter of ttl.
func GetOrLoad[T any](ctx context.Context, c *HotCache, key string, ttl time.Duration, loader func(context.Context) (*T, error)) (*T, error) {
	if c == nil || c.redisClient == nil {
		return loader(ctx)
	}

	if value, hit := lookup[T](ctx, c, key); hit {
		return value, nil
	}

	if c.lockService == nil {
		loaded, err := loader(ctx)
		if err == nil {
			store(ctx, c, key, loaded, ttl)
		}
		return loaded, err
	}

	var result *T
	err := c.lockService.WithLock(ctx, "cache_lock:"+key, 5*time.Second, func() error {
		// another instance may have filled it while we waited
		if value, hit := lookup[T](ctx, c, key); hit {
			result = value
			return nil
		}

		loaded, err := loader(ctx)
		if err != nil {
			return err
		}
		result = loaded
		store(ctx, c, key, loaded, ttl)
		return nil
	})
	if errors.Is(err, ErrLockNotAcquired) {
		c.logger.Warn("cache lock not acquired, loading directly", "key", key, "error", err)
		return loader(ctx)
	}
	return result, err
}

// Invalidate drops the given keys.
func (c *HotCache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || c.redisClient == nil {
		return nil
	}
	return c.redisClient.Del(ctx, keys...).Err()
}

func lookup[T any](ctx context.Context, c *HotCache, key string) (*T, bool) {
	data, err := c.redisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	if data == nullValue {
		return nil, true
	}

	var value T
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		c.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	return &value, true
}

func store[T any](ctx context.Context, c *HotCache, key string, value *T, ttl time.Duration) {
	var err error
	if value == nil {
		err = c.redisClient.Set(ctx, key, nullValue, ttl/4).Err()
	} else {
		var data []byte
		data, err = json.Marshal(value)
		if err == nil {
			err = c.redisClient.Set(ctx, key, string(data), withJitter(ttl)).Err()
		}
	}
	if err != nil {
		c.logger.Warn("cache store failed", "key", key, "error", err)
	}
}

// withJitter spreads expiry over an extra tenth of ttl.
func withJitter(ttl time.Duration) time.Duration {
	if ttl < 10 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(int64(ttl/10)))
}
