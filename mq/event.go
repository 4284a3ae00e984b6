package mq

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventVoteRecorded   = "vote.recorded"
	EventPostPublished  = "post.published"
	EventCommentAdded   = "comment.added"
	EventCommentRemoved = "comment.removed"
)

// Event is the message carried by every bus.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	QuestionID uint      `json:"question_id,omitempty"`
	ChoiceID   uint      `json:"choice_id,omitempty"`
	PostID     uint      `json:"post_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// Handler processes one delivered event.
type Handler func(ctx context.Context, event Event) error

// Bus fans events out to every subscriber.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, handler Handler) error
	Close()
}
