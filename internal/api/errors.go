package api

import (
	"errors"
	"net/http"

	"github.com/cardlog/cardlog/internal/domain"
	"github.com/cardlog/cardlog/internal/service"
	"github.com/cardlog/cardlog/internal/service/auth"
	"github.com/cardlog/cardlog/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Not found errors. A flashcard owned by someone else maps here too,
	// so existence never leaks across accounts.
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict

	// State errors: the request was well-formed but the flashcard cannot
	// accept the operation.
	case errors.Is(err, service.ErrNotDeleted),
		errors.Is(err, service.ErrAlreadyCorrect):
		return http.StatusUnprocessableEntity

	// Validation errors that slipped past request validation.
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrQuestionEmpty),
		errors.Is(err, domain.ErrQuestionTooLong),
		errors.Is(err, domain.ErrAnswerEmpty),
		errors.Is(err, domain.ErrAnswerTooLong),
		errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusUnprocessableEntity

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the error.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"

	// Not found errors
	case errors.Is(err, store.ErrFlashcardNotFound):
		return "Flashcard not found"

	case errors.Is(err, store.ErrAuditNotFound):
		return "Audit record not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	// State errors
	case errors.Is(err, service.ErrNotDeleted):
		return "Flashcard is not deleted"

	case errors.Is(err, service.ErrAlreadyCorrect):
		return "Flashcard has already been answered correctly"

	// Validation errors, worded like request validation so the client sees
	// one consistent vocabulary.
	case errors.Is(err, domain.ErrQuestionEmpty):
		return "The question field is required."

	case errors.Is(err, domain.ErrQuestionTooLong):
		return "The question field must not be greater than 255 characters."

	case errors.Is(err, domain.ErrAnswerEmpty):
		return "The answer field is required."

	case errors.Is(err, domain.ErrAnswerTooLong):
		return "The answer field must not be greater than 255 characters."

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}
