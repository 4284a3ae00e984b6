package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pollblog-backend/models"

	"gorm.io/gorm"
)

// seedAuthor owns the sample posts. The password hash is not a valid bcrypt
// hash, so the account can't log in.
const seedAuthor = "editor"

// Seed inserts sample polls and posts into empty tables.
func Seed(ctx context.Context, db *gorm.DB, now time.Time, logger *slog.Logger) error {
	db = db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Question{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	if count == 0 {
		if err := seedQuestions(db, now); err != nil {
			return err
		}
		logger.Info("sample questions created")
	} else {
		logger.Debug("questions present, skipping sample data")
	}

	if err := db.Model(&models.Post{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	if count == 0 {
		if err := seedPosts(db, now); err != nil {
			return err
		}
		logger.Info("sample posts created")
	} else {
		logger.Debug("posts present, skipping sample data")
	}

	return nil
}

func seedQuestions(db *gorm.DB, now time.Time) error {
	questions := []models.Question{
		{
			QuestionText: "What's your favourite programming language?",
			PubDate:      now.Add(-time.Hour),
			Choices: []models.Choice{
				{ChoiceText: "Go", Votes: 10},
				{ChoiceText: "Python", Votes: 8},
				{ChoiceText: "Java", Votes: 6},
				{ChoiceText: "JavaScript", Votes: 9},
			},
		},
		{
			QuestionText: "What's up?",
			PubDate:      now.AddDate(0, 0, -3),
			Choices: []models.Choice{
				{ChoiceText: "Not much"},
				{ChoiceText: "The sky"},
			},
		},
	}
	if err := db.Create(&questions).Error; err != nil {
		return fmt.Errorf("create sample questions: %w", err)
	}
	return nil
}

func seedPosts(db *gorm.DB, now time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		author := models.User{Username: seedAuthor, PasswordHash: "!", IsStaff: true}
		if err := tx.Where(models.User{Username: seedAuthor}).FirstOrCreate(&author).Error; err != nil {
			return fmt.Errorf("create sample author: %w", err)
		}

		published := now.Add(-2 * time.Hour)
		posts := []models.Post{
			{
				AuthorID:      author.ID,
				Title:         "Hello world",
				Text:          "The first published post.",
				CreatedDate:   now.AddDate(0, 0, -1),
				PublishedDate: &published,
				Comments: []models.Comment{
					{Author: "ann", Text: "Nice start!", CreatedDate: now.Add(-time.Hour), ApprovedComment: true},
					{Author: "bob", Text: "Waiting for moderation", CreatedDate: now.Add(-30 * time.Minute)},
				},
			},
			{
				AuthorID:    author.ID,
				Title:       "Work in progress",
				Text:        "A draft nobody can see yet.",
				CreatedDate: now.Add(-3 * time.Hour),
			},
		}
		if err := tx.Create(&posts).Error; err != nil {
			return fmt.Errorf("create sample posts: %w", err)
		}
		return nil
	})
}
