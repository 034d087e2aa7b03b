package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the parent of every "missing entity" error.
	ErrNotFound = errors.New("not found")
	// ErrMeetNotFound is returned when a meet id does not resolve.
	ErrMeetNotFound = fmt.Errorf("meet %w", ErrNotFound)
	// ErrQuestionNotFound indicates a question id is unknown.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrUserNotFound indicates a user id or email is unknown.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrStatNotFound is returned before a user's first submission.
	ErrStatNotFound = fmt.Errorf("stat %w", ErrNotFound)
	// ErrAttemptNotFound is returned before a user starts a meet.
	ErrAttemptNotFound = fmt.Errorf("attempt %w", ErrNotFound)

	// ErrUnauthorized covers missing, invalid, or expired credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when an authenticated user lacks the role.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned on unique violations and stale versioned writes.
	ErrConflict = errors.New("conflict")
)

// FieldError describes a problem with a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed client input.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with optional field details.
func NewValidationError(msg string, fields ...FieldError) error {
	return &ValidationError{Message: msg, Fields: fields}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
