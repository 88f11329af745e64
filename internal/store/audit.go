package store

import (
	"context"
	"database/sql"

	"github.com/cardlog/cardlog/internal/domain"
)

// AuditLogStore defines the interface for the append-only flashcard change
// log. Records are written once and never updated; they disappear only when
// their flashcard is permanently deleted (cascade).
type AuditLogStore interface {
	// Record durably appends a new audit record and populates its ID.
	// The ID is assigned by storage and increases monotonically per store.
	// Returns validation errors if the record data is invalid.
	//
	// Record MUST be called inside the same transaction as the flashcard
	// mutation it describes (use WithTx), so a crash never leaves an
	// orphaned audit record or an un-audited mutation.
	Record(ctx context.Context, rec *domain.AuditRecord) error

	// History returns the flashcard's audit records, most recent first.
	// An empty slice (not an error) is returned when no records exist.
	History(ctx context.Context, flashcardID int64) ([]*domain.AuditRecord, error)

	// Find retrieves a single audit record scoped to the given flashcard.
	// Returns ErrAuditNotFound if the record does not exist or belongs to
	// a different flashcard.
	Find(ctx context.Context, flashcardID, auditID int64) (*domain.AuditRecord, error)

	// WithTx returns a new AuditLogStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) AuditLogStore
}
