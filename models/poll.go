package models

import (
	"time"
)

// RecentWindow is how far back a publication date still counts as recent.
const RecentWindow = 24 * time.Hour

// Question represents a poll question
type Question struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	QuestionText string    `gorm:"size:200;not null" json:"question_text"`
	PubDate      time.Time `gorm:"not null;index" json:"pub_date"`
	Choices      []Choice  `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"choices"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Choice represents an answer option within a question
type Choice struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	ChoiceText string `gorm:"size:200;not null" json:"choice_text"`
	Votes      int64  `gorm:"not null;default:0" json:"votes"`
}

// IsPublishedAt reports whether the question is visible at now.
func (q Question) IsPublishedAt(now time.Time) bool {
	return !q.PubDate.After(now)
}

// WasPublishedRecently is true when PubDate lies within the RecentWindow
// ending at now. Future dates are never recent.
func (q Question) WasPublishedRecently(now time.Time) bool {
	return q.IsPublishedAt(now) && !q.PubDate.Before(now.Add(-RecentWindow))
}

// HasChoices reports whether the question can be voted on.
func (q Question) HasChoices() bool {
	return len(q.Choices) > 0
}

// TotalVotes sums the votes of all loaded choices.
func (q Question) TotalVotes() int64 {
	var total int64
	for _, c := range q.Choices {
		total += c.Votes
	}
	return total
}

// String is used by logs and the admin list.
func (q Question) String() string {
	return q.QuestionText
}
