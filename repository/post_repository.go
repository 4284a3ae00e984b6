package repository

import (
	"context"
	"time"

	"pollblog-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository is the storage boundary of the blog app.
type PostRepository interface {
	ListPublished(ctx context.Context, now time.Time) ([]models.Post, error)
	ListDrafts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	SavePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id uint) error

	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id uint) (*models.Comment, error)
	SaveComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, id uint) error
}

type GormPostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// ListPublished returns posts with published_date <= now, oldest first.
func (r *GormPostRepository) ListPublished(ctx context.Context, now time.Time) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("published_date IS NOT NULL AND published_date <= ?", now.UTC()).
		Order("published_date ASC").
		Order("id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ListDrafts returns unpublished posts, oldest first.
func (r *GormPostRepository) ListDrafts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("published_date IS NULL").
		Order("created_date ASC").
		Order("id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *GormPostRepository) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_date ASC").Order("comments.id ASC")
		}).
		First(&post, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *GormPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

// SavePost writes the post's own columns; author and comments are left alone.
// A post deleted since it was read is ErrNotFound and is not written back.
func (r *GormPostRepository) SavePost(ctx context.Context, post *models.Post) error {
	return updateByID(r.db.WithContext(ctx), post)
}

func (r *GormPostRepository) DeletePost(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *GormPostRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *GormPostRepository) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (r *GormPostRepository) SaveComment(ctx context.Context, comment *models.Comment) error {
	return updateByID(r.db.WithContext(ctx), comment)
}

func (r *GormPostRepository) DeleteComment(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
