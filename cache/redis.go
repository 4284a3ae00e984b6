package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pollblog-backend/config"

	"github.com/redis/go-redis/v9"
)

// Connect dials Redis and verifies the connection with a PING.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrRedisNotAvailable
	}

	logger.Info("connecting to redis", "addr", cfg.Addr)

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 3 * time.Second,
		ReadTimeout: 3 * time.Second,
		PoolSize:    10,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisNotAvailable, err)
	}

	logger.Info("redis connected")
	return client, nil
}

// Purge deletes every key matching the given patterns. SCAN is used so large
// keyspaces don't block the server.
func Purge(ctx context.Context, client RedisClient, patterns []string) (int64, error) {
	if client == nil {
		return 0, ErrRedisNotAvailable
	}

	var total int64
	for _, pattern := range patterns {
		var cursor uint64
		for {
			keys, next, err := client.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return total, fmt.Errorf("scan %q: %w", pattern, err)
			}
			if len(keys) > 0 {
				deleted, err := client.Del(ctx, keys...).Result()
				if err != nil {
					return total, fmt.Errorf("delete %q: %w", pattern, err)
				}
				total += deleted
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	return total, nil
}
