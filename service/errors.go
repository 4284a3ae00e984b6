package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers missing rows and rows hidden by a visibility rule.
	ErrNotFound = errors.New("not found")

	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	ErrChoiceNotFound   = fmt.Errorf("choice %w", ErrNotFound)
	ErrPostNotFound     = fmt.Errorf("post %w", ErrNotFound)
	ErrCommentNotFound  = fmt.Errorf("comment %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	// ErrNoSelection is shown to the voter when the form was submitted empty.
	ErrNoSelection = errors.New("You did not select a choice.")

	ErrAuthenticationRequired = errors.New("authentication required")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrInvalidInput           = errors.New("invalid input")
)
