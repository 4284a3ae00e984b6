package models

import (
	"time"
)

// Post is a blog entry. A nil PublishedDate marks a draft.
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AuthorID      uint       `gorm:"not null;index" json:"author_id"`
	Author        User       `gorm:"foreignKey:AuthorID" json:"author"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Text          string     `gorm:"type:text;not null" json:"text"`
	CreatedDate   time.Time  `gorm:"not null" json:"created_date"`
	PublishedDate *time.Time `gorm:"index" json:"published_date"`
	Comments      []Comment  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

// Comment belongs to exactly one post and starts unapproved.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	Author          string    `gorm:"size:200;not null" json:"author"`
	Text            string    `gorm:"type:text;not null" json:"text"`
	CreatedDate     time.Time `gorm:"not null" json:"created_date"`
	ApprovedComment bool      `gorm:"not null;default:false" json:"approved_comment"`
}

// IsDraft reports whether the post has never been published.
func (p Post) IsDraft() bool {
	return p.PublishedDate == nil
}

// IsPublishedAt reports whether the post is publicly listed at now.
func (p Post) IsPublishedAt(now time.Time) bool {
	return p.PublishedDate != nil && !p.PublishedDate.After(now)
}

// Publish stamps the post with now. Calling it again re-stamps the date.
func (p *Post) Publish(now time.Time) {
	p.PublishedDate = &now
}

// ApprovedComments returns only moderated comments, in their loaded order.
func (p Post) ApprovedComments() []Comment {
	approved := make([]Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		if c.ApprovedComment {
			approved = append(approved, c)
		}
	}
	return approved
}

// Approve marks the comment as moderated.
func (c *Comment) Approve() {
	c.ApprovedComment = true
}
