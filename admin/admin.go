package admin

import (
	"fmt"
	"time"

	"pollblog-backend/service"
)

var (
	ErrUnknownModel   = fmt.Errorf("admin model %w", service.ErrNotFound)
	ErrObjectNotFound = fmt.Errorf("object %w", service.ErrNotFound)
)

// Fieldset groups form fields under an optional heading.
type Fieldset struct {
	Name    string   `json:"name"`
	Fields  []string `json:"fields"`
	Classes []string `json:"classes,omitempty"`
}

// Inline edits a has-many association on the parent's form.
type Inline struct {
	// Field is the Go name of the association, e.g. "Choices".
	Field string `json:"field"`
	// Extra is the number of blank rows a form should offer.
	Extra int `json:"extra"`
}

// Computed derives a read-only list column from a loaded object.
type Computed func(obj any, now time.Time) any

// ModelAdmin describes how one model is listed and edited.
type ModelAdmin struct {
	Name         string     `json:"name"`
	ListDisplay  []string   `json:"list_display"`
	ListFilter   []string   `json:"list_filter,omitempty"`
	SearchFields []string   `json:"search_fields,omitempty"`
	Ordering     []string   `json:"ordering,omitempty"`
	Fieldsets    []Fieldset `json:"fieldsets,omitempty"`
	Inlines      []Inline   `json:"inlines,omitempty"`
	ListPerPage  int        `json:"list_per_page"`

	// New returns a pointer to a zero value of the model.
	New      func() any          `json:"-"`
	Computed map[string]Computed `json:"-"`
	Validate func(obj any) error `json:"-"`
}

func (m *ModelAdmin) perPage() int {
	if m.ListPerPage > 0 {
		return m.ListPerPage
	}
	return 100
}

func (m *ModelAdmin) hasInline(field string) bool {
	for _, in := range m.Inlines {
		if in.Field == field {
			return true
		}
	}
	return false
}
