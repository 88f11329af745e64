package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/cardlog/cardlog/internal/domain"
)

// StatusCounts aggregates a user's flashcards by practice status.
// It is the raw material for the statistics endpoint.
type StatusCounts struct {
	Total    int64
	Answered int64 // status != Not Answered
	Correct  int64
}

// FlashcardStore defines the interface for flashcard data persistence.
//
// Every read is scoped to an owner: a flashcard that exists under a
// different owner must be reported with ErrFlashcardNotFound, identically
// to one that does not exist at all.
type FlashcardStore interface {
	// Create saves a new flashcard and populates its ID and timestamps.
	// Returns validation errors if the flashcard data is invalid.
	Create(ctx context.Context, card *domain.Flashcard) error

	// GetByID retrieves a flashcard by ID, scoped to the given owner.
	// Soft-deleted flashcards are only returned when includeDeleted is true.
	// Returns ErrFlashcardNotFound if the flashcard does not exist, belongs
	// to a different owner, or is soft-deleted and includeDeleted is false.
	GetByID(ctx context.Context, ownerID uuid.UUID, id int64, includeDeleted bool) (*domain.Flashcard, error)

	// List returns all of the owner's flashcards, including soft-deleted
	// ones, ordered by ID.
	List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Flashcard, error)

	// Update writes the flashcard's tracked fields (question, answer,
	// status, deleted_at) and refreshes updated_at.
	// Returns ErrFlashcardNotFound if the row no longer exists.
	//
	// Update persists whatever the caller changed but never emits audit
	// records itself; audit emission is orchestrated by the service layer
	// inside the same transaction. Use WithTx for that.
	Update(ctx context.Context, card *domain.Flashcard) error

	// Delete physically removes a flashcard. The service layer only calls
	// this for flashcards that are already soft-deleted. Associated audit
	// records are removed by the database's ON DELETE CASCADE constraint.
	Delete(ctx context.Context, id int64) error

	// ResetProgress bulk-sets every flashcard of the owner back to
	// Not Answered and returns the number of rows touched. This is a single
	// bulk statement, not per-row updates; it emits no audit records.
	ResetProgress(ctx context.Context, ownerID uuid.UUID) (int64, error)

	// CountByStatus aggregates the owner's active and soft-deleted
	// flashcards by practice status.
	CountByStatus(ctx context.Context, ownerID uuid.UUID) (StatusCounts, error)

	// WithTx returns a new FlashcardStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller,
	// typically via RunInTransaction.
	WithTx(tx *sql.Tx) FlashcardStore
}
