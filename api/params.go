package api

import (
	"fmt"
	"strconv"
	"strings"

	"pollblog-backend/service"
)

var (
	ErrInvalidID     = fmt.Errorf("%w: id must be a positive integer", service.ErrInvalidInput)
	ErrInvalidChoice = fmt.Errorf("choice %w", service.ErrNotFound)
)

// ParseID parses a path identifier.
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}
	return uint(id), nil
}

// ParseChoice interprets the "choice" field of a vote form. A missing or
// empty value is no selection and yields nil. JSON numbers arrive as float64.
func ParseChoice(value any) (*uint, error) {
	var raw string
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		raw = strings.TrimSpace(v)
	case float64:
		if v != float64(uint32(v)) {
			return nil, ErrInvalidChoice
		}
		raw = strconv.FormatFloat(v, 'f', 0, 64)
	default:
		return nil, ErrInvalidChoice
	}

	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, ErrInvalidChoice
	}
	choice := uint(id)
	return &choice, nil
}

// ParsePage reads a 1-based page number, defaulting to 1.
func ParsePage(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("%w: page must be a positive integer", service.ErrInvalidInput)
	}
	return page, nil
}
