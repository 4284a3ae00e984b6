package models

import "gorm.io/gorm"

// Timestamps are stored in UTC so that sqlite's textual comparison of
// dates matches chronological order.

func (q *Question) BeforeSave(*gorm.DB) error {
	q.PubDate = q.PubDate.UTC()
	return nil
}

func (p *Post) BeforeSave(*gorm.DB) error {
	p.CreatedDate = p.CreatedDate.UTC()
	if p.PublishedDate != nil {
		published := p.PublishedDate.UTC()
		p.PublishedDate = &published
	}
	return nil
}

func (c *Comment) BeforeSave(*gorm.DB) error {
	c.CreatedDate = c.CreatedDate.UTC()
	return nil
}
