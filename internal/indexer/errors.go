package indexer

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned by queries and waits while the engine is stopped.
	ErrNotRunning = errors.New("indexer is not running")
	// ErrInvalidInput is returned when a task names a path the engine refuses to touch.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError represents a rejected task field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
