package repository

import (
	"context"
	"time"

	"pollblog-backend/models"

	"gorm.io/gorm"
)

// QuestionRepository is the storage boundary of the polls app.
type QuestionRepository interface {
	ListPublished(ctx context.Context, now time.Time, limit int) ([]models.Question, error)
	GetQuestion(ctx context.Context, id uint) (*models.Question, error)
	IncrementVotes(ctx context.Context, questionID, choiceID uint) error
	CreateQuestion(ctx context.Context, q *models.Question) error
	DeleteQuestion(ctx context.Context, id uint) error
}

type GormQuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *GormQuestionRepository {
	return &GormQuestionRepository{db: db}
}

func orderChoices(db *gorm.DB) *gorm.DB {
	return db.Order("choices.id ASC")
}

// ListPublished returns up to limit questions with pub_date <= now, newest first.
func (r *GormQuestionRepository) ListPublished(ctx context.Context, now time.Time, limit int) ([]models.Question, error) {
	var questions []models.Question
	q := r.db.WithContext(ctx).
		Preload("Choices", orderChoices).
		Where("pub_date <= ?", now.UTC()).
		Order("pub_date DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *GormQuestionRepository) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	err := r.db.WithContext(ctx).
		Preload("Choices", orderChoices).
		First(&question, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &question, nil
}

// IncrementVotes adds one vote in a single statement so concurrent votes
// are never lost. A choice that doesn't belong to the question is ErrNotFound.
func (r *GormQuestionRepository) IncrementVotes(ctx context.Context, questionID, choiceID uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Choice{}).
		Where("id = ? AND question_id = ?", choiceID, questionID).
		UpdateColumn("votes", gorm.Expr("votes + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormQuestionRepository) CreateQuestion(ctx context.Context, q *models.Question) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *GormQuestionRepository) DeleteQuestion(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&models.Choice{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Question{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
