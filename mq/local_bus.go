package mq

import (
	"context"
	"log/slog"
	"sync"
)

// LocalBus delivers events to handlers in this process only.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []Handler
	closed   bool
	logger   *slog.Logger
}

func NewLocalBus(logger *slog.Logger) *LocalBus {
	return &LocalBus{logger: logger}
}

// Publish calls every handler in subscription order before returning.
func (b *LocalBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			b.logger.Error("event handler failed", "event", event.Type, "id", event.ID, "error", err)
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(_ context.Context, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.handlers = append(b.handlers, handler)
	return nil
}

func (b *LocalBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
}
