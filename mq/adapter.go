package mq

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// NewAdapter picks the Redis bus when a client is available and the
// in-process bus otherwise.
func NewAdapter(client *redis.Client, logger *slog.Logger) Bus {
	if client == nil {
		logger.Info("redis unavailable, using in-process event bus")
		return NewLocalBus(logger)
	}
	logger.Info("using redis event bus", "channel", Channel)
	return NewRedisBus(client, logger)
}
