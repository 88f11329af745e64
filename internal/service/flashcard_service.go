// Package service contains the flashcard orchestration layer: it combines
// the flashcard and audit stores into the operations the HTTP handlers and
// CLI expose, running every mutation and its audit append in one
// transaction.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cardlog/cardlog/internal/domain"
	"github.com/cardlog/cardlog/internal/domain/history"
	"github.com/cardlog/cardlog/internal/platform/logger"
	"github.com/cardlog/cardlog/internal/store"
)

// TxRunner executes fn within a database transaction. It exists so the
// service can be tested with mock stores and a pass-through runner.
type TxRunner func(ctx context.Context, fn store.TxFn) error

// SQLTxRunner returns a TxRunner backed by store.RunInTransaction.
func SQLTxRunner(db *sql.DB) TxRunner {
	return func(ctx context.Context, fn store.TxFn) error {
		return store.RunInTransaction(ctx, db, fn)
	}
}

// Statistics aggregates a user's practice progress.
// Percentages are rounded to two decimal places; all fields are zero when
// the user has no flashcards.
type Statistics struct {
	Total           int64   `json:"total_flashcards"`
	PercentAnswered float64 `json:"answered_percentage"`
	PercentCorrect  float64 `json:"correct_percentage"`
}

// PracticeResult reports the outcome of a single practice attempt.
type PracticeResult struct {
	// Correct is true when the submitted answer matched exactly.
	Correct bool

	// Card is the flashcard after the attempt, including the expected
	// answer so callers can reveal it on a miss.
	Card *domain.Flashcard
}

// HistoryEntry is one audit record rendered for display: the raw captured
// values plus the merged snapshot view.
type HistoryEntry struct {
	AuditID   int64
	CreatedAt time.Time
	OldValues domain.FieldValues
	NewValues domain.FieldValues
	Snapshot  history.Snapshot
}

// FlashcardService defines the flashcard operations exposed to transports.
//
// Every method is scoped to an explicit owner: a flashcard that exists under
// a different owner is indistinguishable from one that does not exist.
type FlashcardService interface {
	// Create saves a new flashcard with status Not Answered.
	Create(ctx context.Context, ownerID uuid.UUID, question, answer string) (*domain.Flashcard, error)

	// List returns all of the owner's flashcards, soft-deleted included.
	List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Flashcard, error)

	// Find retrieves one flashcard. Soft-deleted flashcards are only
	// visible when includeDeleted is true.
	Find(ctx context.Context, ownerID uuid.UUID, id int64, includeDeleted bool) (*domain.Flashcard, error)

	// Edit updates the question and answer. A change appends one audit
	// record covering only the fields that changed; an edit that changes
	// nothing succeeds without writing anything.
	Edit(ctx context.Context, ownerID uuid.UUID, id int64, question, answer string) (*domain.Flashcard, error)

	// SoftDelete marks the flashcard as deleted, keeping it restorable.
	SoftDelete(ctx context.Context, ownerID uuid.UUID, id int64) error

	// Restore clears the soft-delete marker.
	// Returns ErrNotDeleted if the flashcard is active.
	Restore(ctx context.Context, ownerID uuid.UUID, id int64) (*domain.Flashcard, error)

	// PermanentlyDelete removes a soft-deleted flashcard and, by cascade,
	// its audit trail. Returns ErrNotDeleted if the flashcard is active.
	PermanentlyDelete(ctx context.Context, ownerID uuid.UUID, id int64) error

	// Practice grades a submitted answer with an exact, case-sensitive
	// comparison and records the resulting status.
	// Returns ErrAlreadyCorrect, without writing, if the flashcard has
	// already been answered correctly.
	Practice(ctx context.Context, ownerID uuid.UUID, id int64, answer string) (*PracticeResult, error)

	// Statistics aggregates the owner's progress across active flashcards;
	// soft-deleted ones are excluded from every count.
	Statistics(ctx context.Context, ownerID uuid.UUID) (Statistics, error)

	// ResetProgress sets every flashcard of the owner back to Not Answered
	// in one bulk statement and returns the number of rows touched.
	ResetProgress(ctx context.Context, ownerID uuid.UUID) (int64, error)

	// History returns the flashcard's audit trail, most recent first, each
	// record paired with its merged snapshot view. A soft-deleted flashcard
	// is only visible when includeDeleted is true.
	History(ctx context.Context, ownerID uuid.UUID, id int64, includeDeleted bool) ([]HistoryEntry, error)

	// RevertToAudit writes the audit record's merged field payload back to
	// the flashcard. The record must belong to the flashcard. A soft-deleted
	// flashcard is only revertable when includeDeleted is true.
	RevertToAudit(ctx context.Context, ownerID uuid.UUID, id, auditID int64, includeDeleted bool) (*domain.Flashcard, error)
}

// flashcardService is the production implementation of FlashcardService.
type flashcardService struct {
	runTx      TxRunner
	flashcards store.FlashcardStore
	audits     store.AuditLogStore
	policy     AuditPolicy
	logger     *slog.Logger
	timeFunc   func() time.Time // Injectable for testing
}

// Ensure flashcardService implements FlashcardService interface
var _ FlashcardService = (*flashcardService)(nil)

// NewFlashcardService creates a new FlashcardService.
func NewFlashcardService(
	runTx TxRunner,
	flashcards store.FlashcardStore,
	audits store.AuditLogStore,
	policy AuditPolicy,
	log *slog.Logger,
) (FlashcardService, error) {
	if runTx == nil {
		return nil, fmt.Errorf("transaction runner cannot be nil")
	}
	if flashcards == nil {
		return nil, fmt.Errorf("flashcard store cannot be nil")
	}
	if audits == nil {
		return nil, fmt.Errorf("audit log store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &flashcardService{
		runTx:      runTx,
		flashcards: flashcards,
		audits:     audits,
		policy:     policy,
		logger:     log.With(slog.String("component", "flashcard_service")),
		timeFunc:   func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *flashcardService) Create(
	ctx context.Context,
	ownerID uuid.UUID,
	question, answer string,
) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := domain.NewFlashcard(ownerID, question, answer)
	if err != nil {
		return nil, err
	}

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.flashcards.WithTx(tx).Create(ctx, card); err != nil {
			return err
		}
		if s.policy.Create {
			return s.appendAudit(ctx, tx, card.ID, ownerID,
				domain.FieldValues{}, card.TrackedValues())
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create flashcard",
			slog.String("user_id", ownerID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("flashcard created",
		slog.Int64("flashcard_id", card.ID),
		slog.String("user_id", ownerID.String()))
	return card, nil
}

func (s *flashcardService) List(
	ctx context.Context,
	ownerID uuid.UUID,
) ([]*domain.Flashcard, error) {
	return s.flashcards.List(ctx, ownerID)
}

func (s *flashcardService) Find(
	ctx context.Context,
	ownerID uuid.UUID,
	id int64,
	includeDeleted bool,
) (*domain.Flashcard, error) {
	return s.flashcards.GetByID(ctx, ownerID, id, includeDeleted)
}

func (s *flashcardService) Edit(
	ctx context.Context,
	ownerID uuid.UUID,
	id int64,
	question, answer string,
) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Flashcard
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.flashcards.WithTx(tx)

		card, err := cards.GetByID(ctx, ownerID, id, false)
		if err != nil {
			return err
		}

		oldValues, newValues := domain.DiffTracked(card.TrackedValues(), domain.FieldValues{
			domain.FieldQuestion: question,
			domain.FieldAnswer:   answer,
		})
		if len(newValues) == 0 {
			// Nothing changed: succeed without an update or an audit row.
			updated = card
			return nil
		}

		card.Question = question
		card.Answer = answer
		card.UpdatedAt = s.timeFunc()
		if err := card.Validate(); err != nil {
			return err
		}

		if err := cards.Update(ctx, card); err != nil {
			return err
		}
		if s.policy.Update {
			if err := s.appendAudit(ctx, tx, card.ID, ownerID, oldValues, newValues); err != nil {
				return err
			}
		}

		updated = card
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("flashcard edited",
		slog.Int64("flashcard_id", id),
		slog.String("user_id", ownerID.String()))
	return updated, nil
}

func (s *flashcardService) SoftDelete(
	ctx context.Context,
	ownerID uuid.UUID,
	id int64,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.flashcards.WithTx(tx)

		card, err := cards.GetByID(ctx, ownerID, id, false)
		if err != nil {
			return err
		}

		now := s.timeFunc()
		oldValues, newValues := domain.DiffTracked(card.TrackedValues(), domain.FieldValues{
			domain.FieldDeletedAt: now,
		})

		card.DeletedAt = &now
		card.UpdatedAt = now
		if err := cards.Update(ctx, card); err != nil {
			return err
		}
		if s.policy.SoftDelete {
			return s.appendAudit(ctx, tx, card.ID, ownerID, oldValues, newValues)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Debug("flashcard soft-deleted",
		slog.Int64("flashcard_id", id),
		slog.String("user_id", ownerID.String()))
	return nil
}

func (s *flashcardService) Restore(
	ctx context.Context,
	ownerID uuid.UUID,
	id int64,
) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var restored *domain.Flashcard
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.flashcards.WithTx(tx)

		card, err := cards.GetByID(ctx, ownerID, id, true)
		if err != nil {
			return err
		}
		if !card.Trashed() {
			return ErrNotDeleted
		}

		oldValues, newValues := domain.DiffTracked(card.TrackedValues(), domain.FieldValues{
			domain.FieldDeletedAt: nil,
		})

		card.DeletedAt = nil
		card.UpdatedAt = s.timeFunc()
		if err := cards.Update(ctx, card); err != nil {
			return err
		}
		if s.policy.Restore {
			if err := s.appendAudit(ctx, tx, card.ID, ownerID, oldValues, newValues); err != nil {
				return err
			}
		}

		restored = card
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("flashcard restored",
		slog.Int64("flashcard_id", id),
		slog.String("user_id", ownerID.String()))
	return restored, nil
}

func (s *flashcardService) PermanentlyDelete(
	ctx context.Context,
	ownerID uuid.UUID,
	id int64,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.flashcards.WithTx(tx)

		card, err := cards.GetByID(ctx, ownerID, id, true)
		if err != nil {
			return err
		}
		if !card.Trashed() {
			return ErrNotDeleted
		}

		// Audit records go with the flashcard via ON DELETE CASCADE.
		return cards.Delete(ctx, card.ID)
	})
	if err != nil {
		return err
	}

	log.Info("flashcard permanently deleted",
		slog.Int64("flashcard_id", id),
		slog.String("user_id", ownerID.String()))
	return nil
}

func (s *flashcardService) Practice(
	ctx context.Context,
	ownerID uuid.UUID,
	id int64,
	answer string,
) (*PracticeResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var result *PracticeResult
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.flashcards.WithTx(tx)

		card, err := cards.GetByID(ctx, ownerID, id, false)
		if err != nil {
			return err
		}
		if card.Status == domain.StatusCorrect {
			return ErrAlreadyCorrect
		}

		// Exact, case-sensitive comparison. No trimming, no normalization.
		correct := answer == card.Answer
		next := domain.StatusIncorrect
		if correct {
			next = domain.StatusCorrect
		}

		oldValues, newValues := domain.DiffTracked(card.TrackedValues(), domain.FieldValues{
			domain.FieldStatus: string(next),
		})
		if len(newValues) > 0 {
			card.Status = next
			card.UpdatedAt = s.timeFunc()
			if err := cards.Update(ctx, card); err != nil {
				return err
			}
			if s.policy.Update {
				if err := s.appendAudit(ctx, tx, card.ID, ownerID, oldValues, newValues); err != nil {
					return err
				}
			}
		}

		result = &PracticeResult{Correct: correct, Card: card}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("flashcard practiced",
		slog.Int64("flashcard_id", id),
		slog.String("user_id", ownerID.String()),
		slog.Bool("correct", result.Correct))
	return result, nil
}

func (s *flashcardService) Statistics(
	ctx context.Context,
	ownerID uuid.UUID,
) (Statistics, error) {
	counts, err := s.flashcards.CountByStatus(ctx, ownerID)
	if err != nil {
		return Statistics{}, err
	}
	if counts.Total == 0 {
		return Statistics{}, nil
	}

	total := float64(counts.Total)
	return Statistics{
		Total:           counts.Total,
		PercentAnswered: roundPercent(float64(counts.Answered) / total * 100),
		PercentCorrect:  roundPercent(float64(counts.Correct) / total * 100),
	}, nil
}

func (s *flashcardService) ResetProgress(
	ctx context.Context,
	ownerID uuid.UUID,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// A single bulk statement; deliberately leaves no audit trail.
	affected, err := s.flashcards.ResetProgress(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	log.Info("flashcard progress reset",
		slog.String("user_id", ownerID.String()),
		slog.Int64("affected", affected))
	return affected, nil
}

func (s *flashcardService) History(
	ctx context.Context,
	ownerID uuid.UUID,
	id int64,
	includeDeleted bool,
) ([]HistoryEntry, error) {
	card, err := s.flashcards.GetByID(ctx, ownerID, id, includeDeleted)
	if err != nil {
		return nil, err
	}

	records, err := s.audits.History(ctx, card.ID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		snapshot, err := history.View(card, rec)
		if err != nil {
			return nil, NewServiceError("history", "reconstructing snapshot", err)
		}
		entries = append(entries, HistoryEntry{
			AuditID:   rec.ID,
			CreatedAt: rec.CreatedAt,
			OldValues: rec.OldValues,
			NewValues: rec.NewValues,
			Snapshot:  snapshot,
		})
	}

	return entries, nil
}

func (s *flashcardService) RevertToAudit(
	ctx context.Context,
	ownerID uuid.UUID,
	id, auditID int64,
	includeDeleted bool,
) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var reverted *domain.Flashcard
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.flashcards.WithTx(tx)

		card, err := cards.GetByID(ctx, ownerID, id, includeDeleted)
		if err != nil {
			return err
		}

		rec, err := s.audits.WithTx(tx).Find(ctx, card.ID, auditID)
		if err != nil {
			return err
		}

		payload, err := history.RevertPayload(card, rec)
		if err != nil {
			return NewServiceError("revert", "computing revert payload", err)
		}

		proposed := domain.FieldValues{
			domain.FieldQuestion:  payload.Question,
			domain.FieldAnswer:    payload.Answer,
			domain.FieldStatus:    string(payload.Status),
			domain.FieldDeletedAt: nil,
		}
		if payload.DeletedAt != nil {
			proposed[domain.FieldDeletedAt] = *payload.DeletedAt
		}

		oldValues, newValues := domain.DiffTracked(card.TrackedValues(), proposed)
		if len(newValues) == 0 {
			// Already in the target state.
			reverted = card
			return nil
		}

		card.Question = payload.Question
		card.Answer = payload.Answer
		card.Status = payload.Status
		card.DeletedAt = payload.DeletedAt
		card.UpdatedAt = s.timeFunc()
		if err := card.Validate(); err != nil {
			return err
		}

		if err := cards.Update(ctx, card); err != nil {
			return err
		}
		if s.policy.Revert {
			if err := s.appendAudit(ctx, tx, card.ID, ownerID, oldValues, newValues); err != nil {
				return err
			}
		}

		reverted = card
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("flashcard reverted",
		slog.Int64("flashcard_id", id),
		slog.Int64("audit_id", auditID),
		slog.String("user_id", ownerID.String()))
	return reverted, nil
}

// appendAudit writes one audit record inside the caller's transaction.
func (s *flashcardService) appendAudit(
	ctx context.Context,
	tx *sql.Tx,
	flashcardID int64,
	actorID uuid.UUID,
	oldValues, newValues domain.FieldValues,
) error {
	rec, err := domain.NewAuditRecord(flashcardID, actorID, oldValues, newValues)
	if err != nil {
		return err
	}
	return s.audits.WithTx(tx).Record(ctx, rec)
}

// roundPercent rounds to two decimal places.
func roundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}
