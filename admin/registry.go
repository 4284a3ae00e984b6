package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"pollblog-backend/models"

	"gorm.io/gorm"
)

const maxTextLength = 200

// DefaultSite registers the poll and blog models.
func DefaultSite(db *gorm.DB, logger *slog.Logger) (*Site, error) {
	site := NewSite(db, logger)
	for _, m := range []*ModelAdmin{questionAdmin(), postAdmin(), commentAdmin()} {
		if err := site.Register(m); err != nil {
			return nil, err
		}
	}
	return site, nil
}

func questionAdmin() *ModelAdmin {
	return &ModelAdmin{
		Name:         "question",
		ListDisplay:  []string{"question_text", "pub_date", "was_published_recently"},
		ListFilter:   []string{"pub_date"},
		SearchFields: []string{"question_text"},
		Ordering:     []string{"-pub_date"},
		Fieldsets: []Fieldset{
			{Fields: []string{"question_text"}},
			{Name: "Date Info", Fields: []string{"pub_date"}, Classes: []string{"collapse"}},
		},
		Inlines: []Inline{{Field: "Choices", Extra: 3}},
		New:     func() any { return &models.Question{} },
		Computed: map[string]Computed{
			"was_published_recently": func(obj any, now time.Time) any {
				return obj.(*models.Question).WasPublishedRecently(now)
			},
		},
		Validate: func(obj any) error {
			q := obj.(*models.Question)
			if err := requireText("question_text", q.QuestionText); err != nil {
				return err
			}
			if q.PubDate.IsZero() {
				return errors.New("pub_date is required")
			}
			for _, c := range q.Choices {
				if err := requireText("choice_text", c.ChoiceText); err != nil {
					return err
				}
				if c.Votes < 0 {
					return errors.New("votes cannot be negative")
				}
			}
			return nil
		},
	}
}

func postAdmin() *ModelAdmin {
	return &ModelAdmin{
		Name:         "post",
		ListDisplay:  []string{"title", "author_id", "created_date", "published_date"},
		ListFilter:   []string{"published_date", "created_date"},
		SearchFields: []string{"title", "text"},
		Ordering:     []string{"-created_date"},
		Inlines:      []Inline{{Field: "Comments"}},
		New:          func() any { return &models.Post{} },
		Validate: func(obj any) error {
			p := obj.(*models.Post)
			if err := requireText("title", p.Title); err != nil {
				return err
			}
			if p.AuthorID == 0 {
				return errors.New("author_id is required")
			}
			if p.CreatedDate.IsZero() {
				p.CreatedDate = time.Now()
			}
			return nil
		},
	}
}

func commentAdmin() *ModelAdmin {
	return &ModelAdmin{
		Name:         "comment",
		ListDisplay:  []string{"author", "post_id", "created_date", "approved_comment"},
		ListFilter:   []string{"approved_comment", "created_date"},
		SearchFields: []string{"author", "text"},
		Ordering:     []string{"-created_date"},
		New:          func() any { return &models.Comment{} },
		Validate: func(obj any) error {
			c := obj.(*models.Comment)
			if err := requireText("author", c.Author); err != nil {
				return err
			}
			if strings.TrimSpace(c.Text) == "" {
				return errors.New("text is required")
			}
			if c.PostID == 0 {
				return errors.New("post_id is required")
			}
			if c.CreatedDate.IsZero() {
				c.CreatedDate = time.Now()
			}
			return nil
		},
	}
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(value) > maxTextLength {
		return fmt.Errorf("%s is longer than %d characters", field, maxTextLength)
	}
	return nil
}
