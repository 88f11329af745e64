// Package history reconstructs point-in-time views of a flashcard from its
// audit trail and computes the field payload written back on revert.
//
// All functions are pure: they never perform I/O and never mutate their inputs.
package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/cardlog/cardlog/internal/domain"
)

// ErrMalformedValue is returned when an audit record holds a value that
// cannot be coerced back to its tracked field's type. Audit rows are only
// ever written by this application, so this indicates corrupted data.
var ErrMalformedValue = errors.New("malformed audit field value")

// Snapshot is a fully materialized view of a flashcard's tracked fields.
type Snapshot struct {
	Question  string
	Answer    string
	Status    domain.Status
	DeletedAt *time.Time
}

// Trashed reports whether the snapshot represents a soft-deleted flashcard.
func (s Snapshot) Trashed() bool {
	return s.DeletedAt != nil
}

// Merge layers the audit record's captured values over a base field set:
// base < oldValues < newValues, with later maps winning ties.
//
// KNOWN QUIRK, kept deliberately: because newValues wins, the result shows
// the *post*-change value for any field the record touched, not a true
// pre-change snapshot (except when oldValues alone already covers every
// tracked field). Reverting therefore re-applies the union of the record's
// diffs on top of current state. This mirrors the behavior the product
// shipped with; do not reorder the layers without product sign-off.
func Merge(base, oldValues, newValues domain.FieldValues) domain.FieldValues {
	merged := base.Clone()
	for k, v := range oldValues {
		merged[k] = v
	}
	for k, v := range newValues {
		merged[k] = v
	}
	return merged
}

// View computes what the flashcard looked like around the time of the given
// audit record, using the flashcard's current values as the base layer.
// See Merge for the exact (and quirky) layering semantics.
func View(card *domain.Flashcard, rec *domain.AuditRecord) (Snapshot, error) {
	return snapshotFromValues(Merge(card.TrackedValues(), rec.OldValues, rec.NewValues))
}

// RevertPayload computes the exact tracked-field set to write back to the
// flashcard when reverting to the given audit record. It is the same merge
// as View: the revert applies the record's captured values on top of the
// flashcard's current state.
func RevertPayload(card *domain.Flashcard, rec *domain.AuditRecord) (Snapshot, error) {
	return View(card, rec)
}

// snapshotFromValues coerces a merged field map into a typed Snapshot.
// Values that round-tripped through JSONB may surface as JSON primitives,
// so times are accepted both as time.Time and as RFC 3339 strings.
func snapshotFromValues(values domain.FieldValues) (Snapshot, error) {
	question, err := stringValue(domain.FieldQuestion, values[domain.FieldQuestion])
	if err != nil {
		return Snapshot{}, err
	}

	answer, err := stringValue(domain.FieldAnswer, values[domain.FieldAnswer])
	if err != nil {
		return Snapshot{}, err
	}

	rawStatus, err := stringValue(domain.FieldStatus, values[domain.FieldStatus])
	if err != nil {
		return Snapshot{}, err
	}
	status := domain.Status(rawStatus)
	if !status.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %s=%q", ErrMalformedValue, domain.FieldStatus, rawStatus)
	}

	deletedAt, err := timeValue(domain.FieldDeletedAt, values[domain.FieldDeletedAt])
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Question:  question,
		Answer:    answer,
		Status:    status,
		DeletedAt: deletedAt,
	}, nil
}

func stringValue(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s=%v (%T)", ErrMalformedValue, field, v, v)
	}
	return s, nil
}

func timeValue(field string, v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		u := t.UTC()
		return &u, nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		u := t.UTC()
		return &u, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q: %v", ErrMalformedValue, field, t, err)
		}
		u := parsed.UTC()
		return &u, nil
	default:
		return nil, fmt.Errorf("%w: %s=%v (%T)", ErrMalformedValue, field, v, v)
	}
}
