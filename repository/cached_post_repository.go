package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pollblog-backend/cache"
	"pollblog-backend/models"
)

const (
	postCacheTTL = 10 * time.Minute

	// PostCacheKeyPattern matches every key written by PostCacheKey.
	PostCacheKeyPattern = "post:*"
)

// CachedPostRepository serves GetPost from Redis and invalidates on every write.
type CachedPostRepository struct {
	PostRepository
	cache  *cache.HotCache
	logger *slog.Logger
}

func NewCachedPostRepository(inner PostRepository, hot *cache.HotCache, logger *slog.Logger) *CachedPostRepository {
	return &CachedPostRepository{PostRepository: inner, cache: hot, logger: logger}
}

// PostCacheKey is the Redis key holding a post with its comments.
func PostCacheKey(id uint) string {
	return fmt.Sprintf("post:%d", id)
}

func (r *CachedPostRepository) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := cache.GetOrLoad(ctx, r.cache, PostCacheKey(id), postCacheTTL, func(ctx context.Context) (*models.Post, error) {
		post, err := r.PostRepository.GetPost(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return post, err
	})
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

func (r *CachedPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if err := r.PostRepository.CreatePost(ctx, post); err != nil {
		return err
	}
	// a miss for this id may have been cached before it existed
	r.invalidate(ctx, post.ID)
	return nil
}

func (r *CachedPostRepository) SavePost(ctx context.Context, post *models.Post) error {
	if err := r.PostRepository.SavePost(ctx, post); err != nil {
		return err
	}
	r.invalidate(ctx, post.ID)
	return nil
}

func (r *CachedPostRepository) DeletePost(ctx context.Context, id uint) error {
	if err := r.PostRepository.DeletePost(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedPostRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := r.PostRepository.CreateComment(ctx, comment); err != nil {
		return err
	}
	r.invalidate(ctx, comment.PostID)
	return nil
}

func (r *CachedPostRepository) SaveComment(ctx context.Context, comment *models.Comment) error {
	if err := r.PostRepository.SaveComment(ctx, comment); err != nil {
		return err
	}
	r.invalidate(ctx, comment.PostID)
	return nil
}

func (r *CachedPostRepository) DeleteComment(ctx context.Context, id uint) error {
	comment, err := r.PostRepository.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if err := r.PostRepository.DeleteComment(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, comment.PostID)
	return nil
}

// ForgetObject drops the cached post that obj is or belongs to. Its signature
// fits admin.WriteHook.
func (r *CachedPostRepository) ForgetObject(ctx context.Context, _ string, obj any) {
	switch o := obj.(type) {
	case *models.Post:
		r.invalidate(ctx, o.ID)
	case *models.Comment:
		r.invalidate(ctx, o.PostID)
	}
}

func (r *CachedPostRepository) invalidate(ctx context.Context, postID uint) {
	if err := r.cache.Invalidate(ctx, PostCacheKey(postID)); err != nil {
		r.logger.Warn("post cache invalidation failed", "post_id", postID, "error", err)
	}
}
