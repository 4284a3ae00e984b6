package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pollblog-backend/models"
	"pollblog-backend/service"

	"github.com/gin-gonic/gin"
)

// NoPollsMessage accompanies an empty question index.
const NoPollsMessage = "No polls are available."

// PollController serves the question index, detail, results and voting.
type PollController struct {
	polls  *service.PollService
	now    func() time.Time
	logger *slog.Logger
}

func NewPollController(polls *service.PollService, logger *slog.Logger) *PollController {
	return &PollController{
		polls:  polls,
		now:    time.Now,
		logger: logger.With("component", "polls_api"),
	}
}

// QuestionSummary is one entry of the question index.
type QuestionSummary struct {
	ID                   uint      `json:"id"`
	QuestionText         string    `json:"question_text"`
	PubDate              time.Time `json:"pub_date"`
	WasPublishedRecently bool      `json:"was_published_recently"`
}

// VoteFormResponse re-presents the voting form with an error message.
type VoteFormResponse struct {
	ErrorMessage string           `json:"error_message"`
	Question     *models.Question `json:"question,omitempty"`
}

// RegisterRoutes registers the poll endpoints under router.
// The vote middleware runs only on vote submission.
func (pc *PollController) RegisterRoutes(router gin.IRouter, voteMiddleware ...gin.HandlerFunc) {
	polls := router.Group("/polls")
	{
		polls.GET("", pc.ListQuestions)
		polls.GET("/:id", pc.GetQuestion)
		polls.GET("/:id/results", pc.GetResults)
		polls.POST("/:id/vote", append(voteMiddleware, pc.Vote)...)
	}
}

// ListQuestions returns the latest published questions that have choices.
func (pc *PollController) ListQuestions(c *gin.Context) {
	now := pc.now()
	questions, err := pc.polls.ListVisibleQuestions(c.Request.Context(), now)
	if err != nil {
		writeError(c, pc.logger, err)
		return
	}

	list := make([]QuestionSummary, 0, len(questions))
	for _, q := range questions {
		list = append(list, QuestionSummary{
			ID:                   q.ID,
			QuestionText:         q.QuestionText,
			PubDate:              q.PubDate,
			WasPublishedRecently: pc.polls.WasPublishedRecently(q, now),
		})
	}

	body := gin.H{"latest_question_list": list}
	if len(list) == 0 {
		body["message"] = NoPollsMessage
	}
	c.JSON(http.StatusOK, body)
}

func (pc *PollController) GetQuestion(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, pc.logger, err)
		return
	}

	q, err := pc.polls.GetQuestionForDisplay(c.Request.Context(), id, pc.now())
	if err != nil {
		writeError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (pc *PollController) GetResults(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, pc.logger, err)
		return
	}

	results, err := pc.polls.GetResultsForDisplay(c.Request.Context(), id, pc.now())
	if err != nil {
		writeError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// Vote accepts {"choice": id} as JSON or choice=id as a form post.
func (pc *PollController) Vote(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, pc.logger, err)
		return
	}

	choice, err := pc.readChoice(c)
	if err == nil {
		err = pc.polls.RecordVote(c.Request.Context(), id, choice)
	}

	switch {
	case err == nil:
		location := fmt.Sprintf("/api/polls/%d/results", id)
		c.Header("Location", location)
		c.JSON(http.StatusOK, gin.H{"question_id": id, "results_url": location})
	case errors.Is(err, service.ErrNoSelection):
		c.JSON(http.StatusBadRequest, pc.voteForm(c, id, service.ErrNoSelection.Error()))
	case errors.Is(err, service.ErrChoiceNotFound), errors.Is(err, ErrInvalidChoice):
		c.JSON(http.StatusNotFound, pc.voteForm(c, id, "The selected choice does not exist."))
	default:
		writeError(c, pc.logger, err)
	}
}

func (pc *PollController) readChoice(c *gin.Context) (*uint, error) {
	if c.ContentType() == gin.MIMEJSON {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); errors.Is(err, io.EOF) {
			return nil, nil
		} else if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
		}
		return ParseChoice(body["choice"])
	}
	value, ok := c.GetPostForm("choice")
	if !ok {
		return nil, nil
	}
	return ParseChoice(value)
}

func (pc *PollController) voteForm(c *gin.Context, id uint, message string) VoteFormResponse {
	form := VoteFormResponse{ErrorMessage: message}
	if q, err := pc.polls.GetQuestionForDisplay(c.Request.Context(), id, pc.now()); err == nil {
		form.Question = q
	}
	return form
}
