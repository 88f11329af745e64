package service

import (
	"errors"
	"fmt"
)

// Service-level state errors. These indicate the request was well-formed but
// the flashcard is not in a state that allows the operation.
var (
	// ErrNotDeleted is returned when restore or permanent delete is requested
	// for a flashcard that is not soft-deleted.
	ErrNotDeleted = errors.New("flashcard is not deleted")

	// ErrAlreadyCorrect is returned when a practice attempt targets a
	// flashcard that has already been answered correctly. No write occurs.
	ErrAlreadyCorrect = errors.New("flashcard has already been answered correctly")
)

// ServiceError wraps an underlying failure with the operation that produced
// it. It supports errors.Is/errors.As through Unwrap.
type ServiceError struct {
	Operation string // The service operation that failed (e.g., "edit", "revert")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError with the given operation,
// message, and wrapped error.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
