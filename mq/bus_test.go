package mq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(EventVoteRecorded)
	b := NewEvent(EventVoteRecorded)
	assert.Equal(t, EventVoteRecorded, a.Type)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}

func TestLocalBus(t *testing.T) {
	bus := NewLocalBus(discardLogger())
	ctx := context.Background()

	var got []string
	require.NoError(t, bus.Subscribe(ctx, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.Type)
		return errors.New("ignored")
	}))
	require.NoError(t, bus.Subscribe(ctx, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.Type)
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, NewEvent(EventCommentAdded)))
	assert.Equal(t, []string{"first:comment.added", "second:comment.added"}, got)

	bus.Close()
	assert.ErrorIs(t, bus.Publish(ctx, NewEvent(EventCommentAdded)), ErrBusClosed)
	assert.ErrorIs(t, bus.Subscribe(ctx, nil), ErrBusClosed)
}

func TestRedisBusFansOut(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()

	publisher := NewRedisBus(client, discardLogger())
	subscriber := NewRedisBus(client, discardLogger())
	defer publisher.Close()

	received := make(chan Event, 1)
	require.NoError(t, subscriber.Subscribe(ctx, func(_ context.Context, e Event) error {
		received <- e
		return nil
	}))

	event := NewEvent(EventVoteRecorded)
	event.QuestionID = 3
	event.ChoiceID = 9
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case got := <-received:
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, uint(3), got.QuestionID)
		assert.Equal(t, uint(9), got.ChoiceID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	subscriber.Close()
	assert.ErrorIs(t, subscriber.Subscribe(ctx, nil), ErrBusClosed)
}

func TestNewAdapter(t *testing.T) {
	_, local := NewAdapter(nil, discardLogger()).(*LocalBus)
	assert.True(t, local)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	bus := NewAdapter(client, discardLogger())
	defer bus.Close()
	_, remote := bus.(*RedisBus)
	assert.True(t, remote)
}
