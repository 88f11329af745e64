package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Audit-specific validation errors
var (
	// ErrAuditFlashcardIDEmpty is returned when an audit record's flashcard ID is zero.
	ErrAuditFlashcardIDEmpty = errors.New("audit record flashcard ID cannot be empty")

	// ErrAuditActorEmpty is returned when an audit record's actor is empty or nil.
	ErrAuditActorEmpty = errors.New("audit record actor cannot be empty")

	// ErrAuditNoChanges is returned when an audit record captures no field changes.
	ErrAuditNoChanges = errors.New("audit record must capture at least one field change")
)

// Names of the flashcard fields whose changes are captured in audit records.
const (
	FieldQuestion  = "question"
	FieldAnswer    = "answer"
	FieldStatus    = "status"
	FieldDeletedAt = "deleted_at"
)

// TrackedFields lists the audited flashcard fields in canonical order.
var TrackedFields = []string{FieldQuestion, FieldAnswer, FieldStatus, FieldDeletedAt}

// FieldValues maps tracked field names to their values. Values are either
// string (question, answer, status), time.Time (deleted_at when set), or
// nil (deleted_at when clear). The map is persisted as JSONB, so values
// read back from storage may surface as JSON primitives (e.g. RFC 3339
// strings for times).
type FieldValues map[string]any

// Clone returns a shallow copy of the field values.
// Cloning a nil map returns an empty, non-nil map.
func (v FieldValues) Clone() FieldValues {
	out := make(FieldValues, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// AuditRecord is an immutable log entry capturing the before/after values
// of a tracked-field change to a flashcard. The ID is assigned by storage
// and increases monotonically; it doubles as the revert target key.
// Records are never updated or deleted independently of their flashcard.
type AuditRecord struct {
	ID          int64       `json:"id"`
	FlashcardID int64       `json:"flashcard_id"`
	UserID      uuid.UUID   `json:"user_id"`
	OldValues   FieldValues `json:"old_values"`
	NewValues   FieldValues `json:"new_values"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewAuditRecord creates a new AuditRecord for the given flashcard and actor.
// The ID is zero until the record is persisted.
// Returns an error if validation fails, including when both value maps are empty:
// a write that changes nothing must not produce an audit record.
func NewAuditRecord(
	flashcardID int64,
	actorID uuid.UUID,
	oldValues, newValues FieldValues,
) (*AuditRecord, error) {
	rec := &AuditRecord{
		FlashcardID: flashcardID,
		UserID:      actorID,
		OldValues:   oldValues,
		NewValues:   newValues,
		CreatedAt:   time.Now().UTC(),
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks if the AuditRecord has valid data.
// Returns an error if any field fails validation.
func (r *AuditRecord) Validate() error {
	if r.FlashcardID == 0 {
		return ErrAuditFlashcardIDEmpty
	}

	if r.UserID == uuid.Nil {
		return ErrAuditActorEmpty
	}

	if len(r.OldValues) == 0 && len(r.NewValues) == 0 {
		return ErrAuditNoChanges
	}

	return nil
}

// TrackedValues returns the flashcard's current values for every tracked field.
// The deleted_at entry is nil when the flashcard is active.
func (f *Flashcard) TrackedValues() FieldValues {
	values := FieldValues{
		FieldQuestion:  f.Question,
		FieldAnswer:    f.Answer,
		FieldStatus:    string(f.Status),
		FieldDeletedAt: nil,
	}
	if f.DeletedAt != nil {
		values[FieldDeletedAt] = f.DeletedAt.UTC()
	}
	return values
}

// DiffTracked compares current tracked values against proposed ones and
// returns the before/after maps for fields that actually change.
// Fields absent from proposed are left untouched. Both returned maps are
// empty (and an audit record must not be written) when nothing changes.
func DiffTracked(current, proposed FieldValues) (oldValues, newValues FieldValues) {
	oldValues = make(FieldValues)
	newValues = make(FieldValues)

	for _, field := range TrackedFields {
		next, ok := proposed[field]
		if !ok {
			continue
		}
		prev := current[field]
		if fieldValueEqual(prev, next) {
			continue
		}
		oldValues[field] = prev
		newValues[field] = next
	}

	return oldValues, newValues
}

// fieldValueEqual compares two tracked-field values, treating time.Time
// values as equal when they represent the same instant.
func fieldValueEqual(a, b any) bool {
	ta, aIsTime := a.(time.Time)
	tb, bIsTime := b.(time.Time)
	if aIsTime && bIsTime {
		return ta.Equal(tb)
	}
	if aIsTime || bIsTime {
		return false
	}
	return a == b
}
