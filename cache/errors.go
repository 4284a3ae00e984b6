package cache

import "errors"

var (
	// ErrRedisNotAvailable is returned when a Redis-backed component has no client.
	ErrRedisNotAvailable = errors.New("redis not available")

	// ErrLockNotAcquired means the distributed lock could not be taken in time.
	ErrLockNotAcquired = errors.New("distributed lock not acquired")
)
