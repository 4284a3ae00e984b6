package migrations

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// Step is a single idempotent schema change.
type Step struct {
	Name  string
	Apply func(db *gorm.DB, logger *slog.Logger) error
}

// Steps run in order after AutoMigrate.
var Steps = []Step{
	{Name: "comments_add_approved_comment", Apply: AddApprovedCommentToComments},
	{Name: "comments_add_created_date", Apply: AddCreatedDateToComments},
	{Name: "comments_backfill_created_date", Apply: BackfillCommentCreatedDate},
}

// Run applies every step, stopping at the first failure.
func Run(db *gorm.DB, logger *slog.Logger) error {
	for _, step := range Steps {
		if err := step.Apply(db, logger.With("migration", step.Name)); err != nil {
			return fmt.Errorf("migration %s: %w", step.Name, err)
		}
	}
	return nil
}

// AddApprovedCommentToComments adds the moderation flag to older comment tables.
func AddApprovedCommentToComments(db *gorm.DB, logger *slog.Logger) error {
	if db.Migrator().HasColumn(&Comment{}, "approved_comment") {
		logger.Debug("migration skipped: column already exists")
		return nil
	}

	if err := db.Exec("ALTER TABLE comments ADD COLUMN approved_comment BOOLEAN NOT NULL DEFAULT FALSE").Error; err != nil {
		logger.Error("migration failed", "error", err)
		return err
	}
	logger.Info("migration applied")
	return nil
}

// AddCreatedDateToComments adds the creation timestamp to older comment tables.
func AddCreatedDateToComments(db *gorm.DB, logger *slog.Logger) error {
	if db.Migrator().HasColumn(&Comment{}, "created_date") {
		logger.Debug("migration skipped: column already exists")
		return nil
	}

	if err := db.Exec("ALTER TABLE comments ADD COLUMN created_date DATETIME").Error; err != nil {
		logger.Error("migration failed", "error", err)
		return err
	}
	logger.Info("migration applied")
	return nil
}

// BackfillCommentCreatedDate stamps rows that predate the created_date column.
func BackfillCommentCreatedDate(db *gorm.DB, logger *slog.Logger) error {
	res := db.Exec("UPDATE comments SET created_date = CURRENT_TIMESTAMP WHERE created_date IS NULL")
	if res.Error != nil {
		logger.Error("migration failed", "error", res.Error)
		return res.Error
	}
	if res.RowsAffected > 0 {
		logger.Info("migration applied", "rows", res.RowsAffected)
	}
	return nil
}

// Comment is only used to point the migrator at the comments table.
type Comment struct {
	ApprovedComment bool
}

func (Comment) TableName() string {
	return "comments"
}
