package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"pollblog-backend/database"
	"pollblog-backend/models"
	"pollblog-backend/mq"
	"pollblog-backend/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects events published on a LocalBus.
type recorder struct {
	mu     sync.Mutex
	events []mq.Event
}

func (r *recorder) handle(_ context.Context, e mq.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

type fixture struct {
	db     *gorm.DB
	polls  *PollService
	blog   *BlogService
	events *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.NewTestDB(t)
	bus := mq.NewLocalBus(discardLogger())
	rec := &recorder{}
	require.NoError(t, bus.Subscribe(context.Background(), rec.handle))

	return &fixture{
		db:     db,
		polls:  NewPollService(repository.NewQuestionRepository(db), bus, discardLogger()),
		blog:   NewBlogService(repository.NewPostRepository(db), bus, discardLogger()).WithClock(func() time.Time { return now }),
		events: rec,
	}
}

// createQuestion stores a question published at now+offset with the given choices.
func (f *fixture) createQuestion(t *testing.T, text string, offset time.Duration, choices ...string) *models.Question {
	t.Helper()
	q := &models.Question{QuestionText: text, PubDate: now.Add(offset)}
	for _, c := range choices {
		q.Choices = append(q.Choices, models.Choice{ChoiceText: c})
	}
	require.NoError(t, f.db.Create(q).Error)
	return q
}

func (f *fixture) createUser(t *testing.T, name string, staff bool) *Caller {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "!", IsStaff: staff}
	require.NoError(t, f.db.Create(u).Error)
	return &Caller{UserID: u.ID, Username: u.Username, IsStaff: staff}
}

const day = 24 * time.Hour
