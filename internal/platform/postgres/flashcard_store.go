package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cardlog/cardlog/internal/domain"
	"github.com/cardlog/cardlog/internal/platform/logger"
	"github.com/cardlog/cardlog/internal/store"
)

// PostgresFlashcardStore implements the store.FlashcardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresFlashcardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFlashcardStore creates a new PostgreSQL implementation of the
// FlashcardStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresFlashcardStore(db store.DBTX, logger *slog.Logger) *PostgresFlashcardStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresFlashcardStore{
		db:     db,
		logger: logger.With(slog.String("component", "flashcard_store")),
	}
}

// Ensure PostgresFlashcardStore implements store.FlashcardStore interface
var _ store.FlashcardStore = (*PostgresFlashcardStore)(nil)

// WithTx implements store.FlashcardStore.WithTx
func (s *PostgresFlashcardStore) WithTx(tx *sql.Tx) store.FlashcardStore {
	return &PostgresFlashcardStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.FlashcardStore.Create
// It saves a new flashcard to the database and populates its ID.
// Returns validation errors from the domain Flashcard if data is invalid.
// Returns store.ErrInvalidEntity if the user ID doesn't exist (foreign key violation).
func (s *PostgresFlashcardStore) Create(ctx context.Context, card *domain.Flashcard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("flashcard validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", card.UserID.String()))
		return err
	}

	query := `
		INSERT INTO flashcards (user_id, question, answer, status, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx,
		query,
		card.UserID,
		card.Question,
		card.Answer,
		card.Status,
		nullableTime(card.DeletedAt),
		card.CreatedAt,
		card.UpdatedAt,
	).Scan(&card.ID)

	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("foreign key violation during flashcard creation",
				slog.String("error", err.Error()),
				slog.String("user_id", card.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, card.UserID)
		}

		log.Error("failed to create flashcard",
			slog.String("error", err.Error()),
			slog.String("user_id", card.UserID.String()))
		return store.NewStoreError("flashcard", "create", "insert failed", err)
	}

	log.Info("flashcard created successfully",
		slog.Int64("flashcard_id", card.ID),
		slog.String("user_id", card.UserID.String()))
	return nil
}

// GetByID implements store.FlashcardStore.GetByID
// It retrieves a flashcard by its ID, scoped to the given owner.
// A flashcard owned by someone else is indistinguishable from a missing one.
func (s *PostgresFlashcardStore) GetByID(
	ctx context.Context,
	ownerID uuid.UUID,
	id int64,
	includeDeleted bool,
) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, question, answer, status, deleted_at, created_at, updated_at
		FROM flashcards
		WHERE id = $1 AND user_id = $2
	`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	card, err := scanFlashcard(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("flashcard not found",
				slog.Int64("flashcard_id", id),
				slog.String("user_id", ownerID.String()))
			return nil, store.ErrFlashcardNotFound
		}
		log.Error("failed to get flashcard by ID",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", id))
		return nil, store.NewStoreError("flashcard", "get", "query failed", err)
	}

	return card, nil
}

// List implements store.FlashcardStore.List
// It returns all of the owner's flashcards, including soft-deleted ones,
// ordered by ID.
func (s *PostgresFlashcardStore) List(
	ctx context.Context,
	ownerID uuid.UUID,
) ([]*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, question, answer, status, deleted_at, created_at, updated_at
		FROM flashcards
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		log.Error("failed to list flashcards",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, store.NewStoreError("flashcard", "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	cards := make([]*domain.Flashcard, 0)
	for rows.Next() {
		card, err := scanFlashcard(rows)
		if err != nil {
			log.Error("failed to scan flashcard row",
				slog.String("error", err.Error()),
				slog.String("user_id", ownerID.String()))
			return nil, store.NewStoreError("flashcard", "list", "scan failed", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("flashcard", "list", "iteration failed", err)
	}

	return cards, nil
}

// Update implements store.FlashcardStore.Update
// It writes the flashcard's tracked fields, persisting the caller's
// updated_at unchanged. Returns store.ErrFlashcardNotFound if the row no
// longer exists.
func (s *PostgresFlashcardStore) Update(ctx context.Context, card *domain.Flashcard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("flashcard validation failed during update",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", card.ID))
		return err
	}

	query := `
		UPDATE flashcards
		SET question = $1, answer = $2, status = $3, deleted_at = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		card.Question,
		card.Answer,
		card.Status,
		nullableTime(card.DeletedAt),
		card.UpdatedAt,
		card.ID,
	)
	if err != nil {
		log.Error("failed to update flashcard",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", card.ID))
		return store.NewStoreError("flashcard", "update", "exec failed", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("flashcard", "update", "rows affected failed", err)
	}
	if rowsAffected == 0 {
		log.Debug("flashcard not found for update",
			slog.Int64("flashcard_id", card.ID))
		return store.ErrFlashcardNotFound
	}

	log.Info("flashcard updated successfully",
		slog.Int64("flashcard_id", card.ID),
		slog.String("status", string(card.Status)))
	return nil
}

// Delete implements store.FlashcardStore.Delete
// It physically removes a flashcard row. Audit records go with it via the
// schema's ON DELETE CASCADE constraint.
func (s *PostgresFlashcardStore) Delete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM flashcards WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete flashcard",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", id))
		return store.NewStoreError("flashcard", "delete", "exec failed", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("flashcard", "delete", "rows affected failed", err)
	}
	if rowsAffected == 0 {
		return store.ErrFlashcardNotFound
	}

	log.Info("flashcard permanently deleted",
		slog.Int64("flashcard_id", id))
	return nil
}

// ResetProgress implements store.FlashcardStore.ResetProgress
// It bulk-sets every flashcard of the owner back to Not Answered in a
// single statement. No audit records are emitted for the bulk write.
func (s *PostgresFlashcardStore) ResetProgress(
	ctx context.Context,
	ownerID uuid.UUID,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE flashcards
		SET status = $1, updated_at = $2
		WHERE user_id = $3 AND status <> $1
	`

	result, err := s.db.ExecContext(ctx, query, domain.StatusNotAnswered, time.Now().UTC(), ownerID)
	if err != nil {
		log.Error("failed to reset flashcard progress",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return 0, store.NewStoreError("flashcard", "reset_progress", "exec failed", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, store.NewStoreError("flashcard", "reset_progress", "rows affected failed", err)
	}

	log.Info("flashcard progress reset",
		slog.String("user_id", ownerID.String()),
		slog.Int64("rows_affected", rowsAffected))
	return rowsAffected, nil
}

// CountByStatus implements store.FlashcardStore.CountByStatus
// Soft-deleted flashcards are excluded from every count.
func (s *PostgresFlashcardStore) CountByStatus(
	ctx context.Context,
	ownerID uuid.UUID,
) (store.StatusCounts, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status <> $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM flashcards
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	var counts store.StatusCounts
	err := s.db.QueryRowContext(
		ctx,
		query,
		ownerID,
		domain.StatusNotAnswered,
		domain.StatusCorrect,
	).Scan(&counts.Total, &counts.Answered, &counts.Correct)
	if err != nil {
		log.Error("failed to count flashcards by status",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return store.StatusCounts{}, store.NewStoreError("flashcard", "count", "query failed", err)
	}

	return counts, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanFlashcard.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlashcard(row rowScanner) (*domain.Flashcard, error) {
	var (
		card      domain.Flashcard
		status    string
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&card.ID,
		&card.UserID,
		&card.Question,
		&card.Answer,
		&status,
		&deletedAt,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.Status = domain.Status(status)
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		card.DeletedAt = &t
	}

	return &card, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
