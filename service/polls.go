package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"pollblog-backend/metrics"
	"pollblog-backend/models"
	"pollblog-backend/mq"
	"pollblog-backend/repository"

	"github.com/samber/lo"
)

// LatestQuestionLimit is the page size of the question index.
const LatestQuestionLimit = 10

// NoChoicesMessage is shown instead of results for a question without choices.
const NoChoicesMessage = "This question has no choices and hence cannot be viewed"

// ChoiceResult is one row of a results page.
type ChoiceResult struct {
	ID         uint    `json:"id"`
	ChoiceText string  `json:"choice_text"`
	Votes      int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// QuestionResults is what the results page renders.
type QuestionResults struct {
	QuestionID   uint           `json:"question_id"`
	QuestionText string         `json:"question_text"`
	PubDate      time.Time      `json:"pub_date"`
	TotalVotes   int64          `json:"total_votes"`
	Choices      []ChoiceResult `json:"choices"`
	NoChoices    bool           `json:"no_choices"`
	Message      string         `json:"message,omitempty"`
}

type PollService struct {
	questions repository.QuestionRepository
	events    mq.Bus
	logger    *slog.Logger
}

func NewPollService(questions repository.QuestionRepository, events mq.Bus, logger *slog.Logger) *PollService {
	return &PollService{
		questions: questions,
		events:    events,
		logger:    logger.With("component", "polls"),
	}
}

func publishedBy(now time.Time) func(models.Question, int) bool {
	return func(q models.Question, _ int) bool {
		return q.IsPublishedAt(now)
	}
}

func hasChoices(q models.Question, _ int) bool {
	return q.HasChoices()
}

func pubDateDesc(a, b models.Question) int {
	if c := b.PubDate.Compare(a.PubDate); c != 0 {
		return c
	}
	return int(b.ID) - int(a.ID)
}

// ListVisibleQuestions returns the latest published questions. The page is cut
// to LatestQuestionLimit before questions without choices are dropped, so the
// result can hold fewer than LatestQuestionLimit entries.
func (s *PollService) ListVisibleQuestions(ctx context.Context, now time.Time) ([]models.Question, error) {
	questions, err := s.questions.ListPublished(ctx, now, LatestQuestionLimit)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	visible := lo.Filter(questions, publishedBy(now))
	slices.SortStableFunc(visible, pubDateDesc)
	visible = lo.Subset(visible, 0, LatestQuestionLimit)
	return lo.Filter(visible, hasChoices), nil
}

// GetQuestionForDisplay hides future questions as if they didn't exist.
// Questions without choices are still returned.
func (s *PollService) GetQuestionForDisplay(ctx context.Context, id uint, now time.Time) (*models.Question, error) {
	q, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.IsPublishedAt(now) {
		return nil, ErrQuestionNotFound
	}
	return q, nil
}

func (s *PollService) GetResultsForDisplay(ctx context.Context, id uint, now time.Time) (*QuestionResults, error) {
	q, err := s.GetQuestionForDisplay(ctx, id, now)
	if err != nil {
		return nil, err
	}
	return BuildResults(q), nil
}

// BuildResults computes per-choice shares of the vote.
func BuildResults(q *models.Question) *QuestionResults {
	results := &QuestionResults{
		QuestionID:   q.ID,
		QuestionText: q.QuestionText,
		PubDate:      q.PubDate,
		Choices:      []ChoiceResult{},
	}
	if !q.HasChoices() {
		results.NoChoices = true
		results.Message = NoChoicesMessage
		return results
	}

	results.TotalVotes = q.TotalVotes()
	results.Choices = lo.Map(q.Choices, func(c models.Choice, _ int) ChoiceResult {
		percentage := 0.0
		if results.TotalVotes > 0 {
			percentage = float64(c.Votes) / float64(results.TotalVotes) * 100
		}
		return ChoiceResult{
			ID:         c.ID,
			ChoiceText: c.ChoiceText,
			Votes:      c.Votes,
			Percentage: percentage,
		}
	})
	return results
}

// RecordVote adds exactly one vote to choiceID. A nil choiceID means the form
// was submitted without a selection.
func (s *PollService) RecordVote(ctx context.Context, questionID uint, choiceID *uint) error {
	if _, err := s.getQuestion(ctx, questionID); err != nil {
		return err
	}
	if choiceID == nil {
		return ErrNoSelection
	}

	if err := s.questions.IncrementVotes(ctx, questionID, *choiceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChoiceNotFound
		}
		return fmt.Errorf("record vote: %w", err)
	}
	metrics.VotesTotal.Inc()

	event := mq.NewEvent(mq.EventVoteRecorded)
	event.QuestionID = questionID
	event.ChoiceID = *choiceID
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("vote event not published", "question_id", questionID, "error", err)
	}
	return nil
}

// WasPublishedRecently is the display predicate for the question index.
func (s *PollService) WasPublishedRecently(q models.Question, now time.Time) bool {
	return q.WasPublishedRecently(now)
}

func (s *PollService) getQuestion(ctx context.Context, id uint) (*models.Question, error) {
	q, err := s.questions.GetQuestion(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question %d: %w", id, err)
	}
	return q, nil
}
