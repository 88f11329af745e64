package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaxFieldLength is the maximum length of a flashcard question or answer.
const MaxFieldLength = 255

// Flashcard-specific validation errors
var (
	// ErrFlashcardUserIDEmpty is returned when a flashcard's user ID is empty or nil.
	ErrFlashcardUserIDEmpty = errors.New("flashcard user ID cannot be empty")

	// ErrQuestionEmpty is returned when a flashcard's question is empty.
	ErrQuestionEmpty = errors.New("flashcard question cannot be empty")

	// ErrQuestionTooLong is returned when a flashcard's question exceeds MaxFieldLength.
	ErrQuestionTooLong = errors.New("flashcard question exceeds maximum length")

	// ErrAnswerEmpty is returned when a flashcard's answer is empty.
	ErrAnswerEmpty = errors.New("flashcard answer cannot be empty")

	// ErrAnswerTooLong is returned when a flashcard's answer exceeds MaxFieldLength.
	ErrAnswerTooLong = errors.New("flashcard answer exceeds maximum length")

	// ErrInvalidStatus is returned when a flashcard's status is not a known value.
	ErrInvalidStatus = errors.New("invalid flashcard status")
)

// Status represents a flashcard's practice outcome.
type Status string

// The three practice states a flashcard can be in. The string values are
// part of the persisted and public contract and must not be changed.
const (
	StatusNotAnswered Status = "Not Answered"
	StatusCorrect     Status = "Correct"
	StatusIncorrect   Status = "Incorrect"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusNotAnswered, StatusCorrect, StatusIncorrect:
		return true
	}
	return false
}

// Answered reports whether the flashcard has been practiced at least once.
func (s Status) Answered() bool {
	return s == StatusCorrect || s == StatusIncorrect
}

// Flashcard represents a single question/answer pair owned by a user.
// A flashcard is soft-deleted by setting DeletedAt; it remains queryable
// (and restorable) until it is permanently deleted.
type Flashcard struct {
	ID        int64      `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	Status    Status     `json:"status"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewFlashcard creates a new Flashcard with the given owner, question, and answer.
// The status is initialized to StatusNotAnswered and timestamps are set to now.
// The ID is zero until the flashcard is persisted.
// Returns an error if validation fails.
func NewFlashcard(userID uuid.UUID, question, answer string) (*Flashcard, error) {
	now := time.Now().UTC()
	card := &Flashcard{
		UserID:    userID,
		Question:  question,
		Answer:    answer,
		Status:    StatusNotAnswered,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Flashcard has valid data.
// Returns an error if any field fails validation.
func (f *Flashcard) Validate() error {
	if f.UserID == uuid.Nil {
		return ErrFlashcardUserIDEmpty
	}

	if f.Question == "" {
		return ErrQuestionEmpty
	}

	if len(f.Question) > MaxFieldLength {
		return ErrQuestionTooLong
	}

	if f.Answer == "" {
		return ErrAnswerEmpty
	}

	if len(f.Answer) > MaxFieldLength {
		return ErrAnswerTooLong
	}

	if !f.Status.Valid() {
		return ErrInvalidStatus
	}

	return nil
}

// Trashed reports whether the flashcard is currently soft-deleted.
func (f *Flashcard) Trashed() bool {
	return f.DeletedAt != nil
}
