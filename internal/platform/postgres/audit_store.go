package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/cardlog/cardlog/internal/domain"
	"github.com/cardlog/cardlog/internal/platform/logger"
	"github.com/cardlog/cardlog/internal/store"
)

// PostgresAuditLogStore implements the store.AuditLogStore interface using
// a PostgreSQL database as the storage backend. Audit rows are append-only:
// this store exposes no update or delete operations, and the only way a row
// disappears is the ON DELETE CASCADE from its flashcard.
type PostgresAuditLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAuditLogStore creates a new PostgreSQL implementation of the
// AuditLogStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresAuditLogStore(db store.DBTX, logger *slog.Logger) *PostgresAuditLogStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAuditLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "audit_store")),
	}
}

// Ensure PostgresAuditLogStore implements store.AuditLogStore interface
var _ store.AuditLogStore = (*PostgresAuditLogStore)(nil)

// WithTx implements store.AuditLogStore.WithTx
func (s *PostgresAuditLogStore) WithTx(tx *sql.Tx) store.AuditLogStore {
	return &PostgresAuditLogStore{
		db:     tx,
		logger: s.logger,
	}
}

// Record implements store.AuditLogStore.Record
// It appends a new audit record and populates its monotonically increasing ID.
// Returns validation errors from the domain AuditRecord if data is invalid.
func (s *PostgresAuditLogStore) Record(ctx context.Context, rec *domain.AuditRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rec.Validate(); err != nil {
		log.Warn("audit record validation failed",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", rec.FlashcardID))
		return err
	}

	oldValues, err := json.Marshal(rec.OldValues)
	if err != nil {
		return store.NewStoreError("audit", "record", "marshal old_values failed", err)
	}
	newValues, err := json.Marshal(rec.NewValues)
	if err != nil {
		return store.NewStoreError("audit", "record", "marshal new_values failed", err)
	}

	query := `
		INSERT INTO flashcard_audits (flashcard_id, user_id, old_values, new_values, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err = s.db.QueryRowContext(
		ctx,
		query,
		rec.FlashcardID,
		rec.UserID,
		oldValues,
		newValues,
		rec.CreatedAt,
	).Scan(&rec.ID)

	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrFlashcardNotFound
		}
		log.Error("failed to append audit record",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", rec.FlashcardID))
		return store.NewStoreError("audit", "record", "insert failed", err)
	}

	log.Debug("audit record appended",
		slog.Int64("audit_id", rec.ID),
		slog.Int64("flashcard_id", rec.FlashcardID))
	return nil
}

// History implements store.AuditLogStore.History
// It returns the flashcard's audit records, most recent first. An empty
// slice is returned when the flashcard has no history.
func (s *PostgresAuditLogStore) History(
	ctx context.Context,
	flashcardID int64,
) ([]*domain.AuditRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, flashcard_id, user_id, old_values, new_values, created_at
		FROM flashcard_audits
		WHERE flashcard_id = $1
		ORDER BY id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, flashcardID)
	if err != nil {
		log.Error("failed to query audit history",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", flashcardID))
		return nil, store.NewStoreError("audit", "history", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*domain.AuditRecord, 0)
	for rows.Next() {
		rec, err := scanAuditRecord(rows)
		if err != nil {
			log.Error("failed to scan audit record row",
				slog.String("error", err.Error()),
				slog.Int64("flashcard_id", flashcardID))
			return nil, store.NewStoreError("audit", "history", "scan failed", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("audit", "history", "iteration failed", err)
	}

	return records, nil
}

// Find implements store.AuditLogStore.Find
// It retrieves a single audit record scoped to the given flashcard.
// A record attached to a different flashcard is indistinguishable from a
// missing one.
func (s *PostgresAuditLogStore) Find(
	ctx context.Context,
	flashcardID, auditID int64,
) (*domain.AuditRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, flashcard_id, user_id, old_values, new_values, created_at
		FROM flashcard_audits
		WHERE flashcard_id = $1 AND id = $2
	`

	rec, err := scanAuditRecord(s.db.QueryRowContext(ctx, query, flashcardID, auditID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("audit record not found",
				slog.Int64("flashcard_id", flashcardID),
				slog.Int64("audit_id", auditID))
			return nil, store.ErrAuditNotFound
		}
		log.Error("failed to find audit record",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", flashcardID),
			slog.Int64("audit_id", auditID))
		return nil, store.NewStoreError("audit", "find", "query failed", err)
	}

	return rec, nil
}

func scanAuditRecord(row rowScanner) (*domain.AuditRecord, error) {
	var (
		rec       domain.AuditRecord
		oldValues []byte
		newValues []byte
	)

	err := row.Scan(
		&rec.ID,
		&rec.FlashcardID,
		&rec.UserID,
		&oldValues,
		&newValues,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(oldValues, &rec.OldValues); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(newValues, &rec.NewValues); err != nil {
		return nil, err
	}

	return &rec, nil
}
