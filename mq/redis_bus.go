package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the pub/sub channel shared by every server instance.
const Channel = "pollblog:events"

var ErrBusClosed = errors.New("event bus closed")

// RedisBus publishes events over Redis PUB/SUB so that every instance sees them.
type RedisBus struct {
	client     *redis.Client
	channel    string
	retryDelay time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	stopped  bool
	wg       sync.WaitGroup
}

func NewRedisBus(client *redis.Client, logger *slog.Logger) *RedisBus {
	return &RedisBus{
		client:     client,
		channel:    Channel,
		retryDelay: time.Second,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed; delivery runs in the
// background until ctx is done or the bus is closed.
func (b *RedisBus) Subscribe(ctx context.Context, handler Handler) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.wg.Add(1)
	b.mu.Unlock()

	pubsub, err := b.subscribe(ctx)
	if err != nil {
		b.wg.Done()
		return err
	}

	go b.consumeLoop(ctx, pubsub, handler)
	return nil
}

func (b *RedisBus) subscribe(ctx context.Context) (*redis.PubSub, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	return pubsub, nil
}

func (b *RedisBus) consumeLoop(ctx context.Context, pubsub *redis.PubSub, handler Handler) {
	defer b.wg.Done()

	for {
		done := b.consume(ctx, pubsub, handler)
		_ = pubsub.Close()
		if done {
			return
		}

		// the channel closed under us; resubscribe until stopped
		for {
			select {
			case <-b.stopChan:
				return
			case <-ctx.Done():
				return
			case <-time.After(b.retryDelay):
			}

			var err error
			pubsub, err = b.subscribe(ctx)
			if err == nil {
				b.logger.Info("event bus resubscribed", "channel", b.channel)
				break
			}
			b.logger.Warn("event bus resubscribe failed", "error", err)
		}
	}
}

// consume reports true when the loop should stop for good.
func (b *RedisBus) consume(ctx context.Context, pubsub *redis.PubSub, handler Handler) bool {
	messages := pubsub.Channel()
	for {
		select {
		case <-b.stopChan:
			return true
		case <-ctx.Done():
			return true
		case msg, ok := <-messages:
			if !ok {
				return false
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("dropping undecodable event", "error", err)
				continue
			}
			if err := handler(ctx, event); err != nil {
				b.logger.Error("event handler failed", "event", event.Type, "id", event.ID, "error", err)
			}
		}
	}
}

// Close stops every subscription and waits for handlers to return.
func (b *RedisBus) Close() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	close(b.stopChan)
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("event bus closed")
}
