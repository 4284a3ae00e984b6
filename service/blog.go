package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"pollblog-backend/metrics"
	"pollblog-backend/models"
	"pollblog-backend/mq"
	"pollblog-backend/repository"

	"github.com/microcosm-cc/bluemonday"
)

const maxShortField = 200

const maxCleanRounds = 4

type BlogService struct {
	posts  repository.PostRepository
	events mq.Bus
	logger *slog.Logger
	now    func() time.Time

	plain *bluemonday.Policy
	body  *bluemonday.Policy
}

func NewBlogService(posts repository.PostRepository, events mq.Bus, logger *slog.Logger) *BlogService {
	body := bluemonday.UGCPolicy()
	body.RequireNoFollowOnLinks(true)
	body.AddTargetBlankToFullyQualifiedLinks(true)

	return &BlogService{
		posts:  posts,
		events: events,
		logger: logger.With("component", "blog"),
		now:    time.Now,
		plain:  bluemonday.StrictPolicy(),
		body:   body,
	}
}

// WithClock replaces the clock used for created and published stamps.
func (s *BlogService) WithClock(now func() time.Time) *BlogService {
	s.now = now
	return s
}

func (s *BlogService) ListPublished(ctx context.Context, now time.Time) ([]models.Post, error) {
	posts, err := s.posts.ListPublished(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	return posts, nil
}

func (s *BlogService) ListDrafts(ctx context.Context, caller *Caller) ([]models.Post, error) {
	if err := RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListDrafts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return posts, nil
}

// GetPost hides unpublished posts and unapproved comments from anonymous callers.
func (s *BlogService) GetPost(ctx context.Context, caller *Caller, id uint) (*models.Post, error) {
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Authenticated() {
		return post, nil
	}
	if !post.IsPublishedAt(s.now()) {
		return nil, ErrPostNotFound
	}
	post.Comments = post.ApprovedComments()
	return post, nil
}

// CreatePost stores a new draft authored by caller.
func (s *BlogService) CreatePost(ctx context.Context, caller *Caller, title, text string) (*models.Post, error) {
	if err := RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	title, text, err := s.cleanPost(title, text)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID:    caller.UserID,
		Title:       title,
		Text:        text,
		CreatedDate: s.now(),
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	post.Author = models.User{ID: caller.UserID, Username: caller.Username, IsStaff: caller.IsStaff}
	return post, nil
}

// EditPost changes title and text. The publish state is left untouched.
func (s *BlogService) EditPost(ctx context.Context, caller *Caller, id uint, title, text string) (*models.Post, error) {
	if err := RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	title, text, err := s.cleanPost(title, text)
	if err != nil {
		return nil, err
	}

	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Title = title
	post.Text = text
	if err := s.posts.SavePost(ctx, post); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("save post %d: %w", id, err)
	}
	return post, nil
}

// PublishPost stamps the post with the current time. Publishing an already
// published post moves its date forward.
func (s *BlogService) PublishPost(ctx context.Context, caller *Caller, id uint) (*models.Post, error) {
	if err := RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	post.Publish(s.now())
	if err := s.posts.SavePost(ctx, post); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("publish post %d: %w", id, err)
	}
	metrics.PostsPublished.Inc()
	s.emit(ctx, mq.EventPostPublished, id)
	return post, nil
}

func (s *BlogService) DeletePost(ctx context.Context, caller *Caller, id uint) error {
	if err := RequireAuthenticated(caller); err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return nil
}

// AddComment is open to anyone. The comment waits for approval.
func (s *BlogService) AddComment(ctx context.Context, postID uint, author, text string) (*models.Comment, error) {
	author = s.cleanPlain(author)
	text = s.cleanPlain(text)
	if err := validateShort("author", author); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}

	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:      postID,
		Author:      author,
		Text:        text,
		CreatedDate: s.now(),
	}
	if err := s.posts.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	metrics.Comments.WithLabelValues(metrics.CommentSubmitted).Inc()
	s.emit(ctx, mq.EventCommentAdded, postID)
	return comment, nil
}

func (s *BlogService) ApproveComment(ctx context.Context, caller *Caller, id uint) (*models.Comment, error) {
	if err := RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	comment, err := s.getComment(ctx, id)
	if err != nil {
		return nil, err
	}

	comment.Approve()
	if err := s.posts.SaveComment(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("approve comment %d: %w", id, err)
	}
	metrics.Comments.WithLabelValues(metrics.CommentApproved).Inc()
	return comment, nil
}

func (s *BlogService) DeleteComment(ctx context.Context, caller *Caller, id uint) error {
	if err := RequireAuthenticated(caller); err != nil {
		return err
	}
	comment, err := s.getComment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.posts.DeleteComment(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	metrics.Comments.WithLabelValues(metrics.CommentRemoved).Inc()
	s.emit(ctx, mq.EventCommentRemoved, comment.PostID)
	return nil
}

func (s *BlogService) getPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.GetPost(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return post, nil
}

func (s *BlogService) getComment(ctx context.Context, id uint) (*models.Comment, error) {
	comment, err := s.posts.GetComment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment %d: %w", id, err)
	}
	return comment, nil
}

func (s *BlogService) emit(ctx context.Context, eventType string, postID uint) {
	event := mq.NewEvent(eventType)
	event.PostID = postID
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("blog event not published", "event", eventType, "post_id", postID, "error", err)
	}
}

func (s *BlogService) cleanPost(title, text string) (string, string, error) {
	title = s.cleanPlain(title)
	text = strings.TrimSpace(s.body.Sanitize(text))
	if err := validateShort("title", title); err != nil {
		return "", "", err
	}
	if text == "" {
		return "", "", fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	return title, text, nil
}

// cleanPlain strips all markup and returns plain text. Entities are decoded
// only while decoding cannot produce new markup; encoded tags are stripped
// on the next round.
func (s *BlogService) cleanPlain(value string) string {
	for range maxCleanRounds {
		cleaned := html.UnescapeString(s.plain.Sanitize(value))
		if cleaned == value {
			return strings.TrimSpace(cleaned)
		}
		value = cleaned
	}
	return strings.TrimSpace(s.plain.Sanitize(value))
}

func validateShort(field, value string) error {
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if n > maxShortField {
		return fmt.Errorf("%w: %s is longer than %d characters", ErrInvalidInput, field, maxShortField)
	}
	return nil
}
