package history_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlog/cardlog/internal/domain"
	"github.com/cardlog/cardlog/internal/domain/history"
)

func newCard(t *testing.T, question, answer string) *domain.Flashcard {
	t.Helper()
	card, err := domain.NewFlashcard(uuid.New(), question, answer)
	require.NoError(t, err)
	card.ID = 1
	return card
}

func newRecord(t *testing.T, card *domain.Flashcard, oldV, newV domain.FieldValues) *domain.AuditRecord {
	t.Helper()
	rec, err := domain.NewAuditRecord(card.ID, card.UserID, oldV, newV)
	require.NoError(t, err)
	rec.ID = 10
	return rec
}

func TestMergeOrder(t *testing.T) {
	t.Parallel()

	base := domain.FieldValues{"a": "base", "b": "base", "c": "base"}
	oldV := domain.FieldValues{"b": "old", "c": "old"}
	newV := domain.FieldValues{"c": "new"}

	merged := history.Merge(base, oldV, newV)

	assert.Equal(t, "base", merged["a"])
	assert.Equal(t, "old", merged["b"])
	// new_values wins ties over old_values: the documented quirk.
	assert.Equal(t, "new", merged["c"])
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	base := domain.FieldValues{"a": "base"}
	oldV := domain.FieldValues{"a": "old"}
	newV := domain.FieldValues{"a": "new"}

	_ = history.Merge(base, oldV, newV)

	assert.Equal(t, "base", base["a"])
	assert.Equal(t, "old", oldV["a"])
	assert.Equal(t, "new", newV["a"])
}

func TestViewShowsPostChangeValues(t *testing.T) {
	t.Parallel()

	card := newCard(t, "Q2", "A1")
	rec := newRecord(t, card,
		domain.FieldValues{domain.FieldQuestion: "Q1"},
		domain.FieldValues{domain.FieldQuestion: "Q2"},
	)

	snap, err := history.View(card, rec)
	require.NoError(t, err)

	// The view surfaces the record's new value for touched fields and the
	// card's current values for everything else.
	assert.Equal(t, "Q2", snap.Question)
	assert.Equal(t, "A1", snap.Answer)
	assert.Equal(t, domain.StatusNotAnswered, snap.Status)
	assert.Nil(t, snap.DeletedAt)
}

func TestRevertPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	// create Q1 -> edit to Q2, captured as old={question:Q1}, new={question:Q2}.
	card := newCard(t, "Q2", "A1")
	rec := newRecord(t, card,
		domain.FieldValues{domain.FieldQuestion: "Q1"},
		domain.FieldValues{domain.FieldQuestion: "Q2"},
	)

	// A later edit moved the card to Q3; reverting to the record re-applies
	// the record's union of diffs on top of current state.
	card.Question = "Q3"

	payload, err := history.RevertPayload(card, rec)
	require.NoError(t, err)
	assert.Equal(t, "Q2", payload.Question, "new_values wins over old_values by design")

	// When old_values alone covers the field (record written by a status-only
	// change), revert restores the captured value.
	statusRec := newRecord(t, card,
		domain.FieldValues{domain.FieldStatus: string(domain.StatusNotAnswered)},
		domain.FieldValues{domain.FieldStatus: string(domain.StatusCorrect)},
	)
	card.Status = domain.StatusIncorrect

	payload, err = history.RevertPayload(card, statusRec)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCorrect, payload.Status)
	assert.Equal(t, "Q3", payload.Question, "untouched fields keep current values")
}

func TestViewCoercesJSONValues(t *testing.T) {
	t.Parallel()

	// Values read back from JSONB arrive as JSON primitives: times as strings.
	deletedAt := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	card := newCard(t, "Q1", "A1")
	rec := newRecord(t, card,
		domain.FieldValues{domain.FieldDeletedAt: nil},
		domain.FieldValues{domain.FieldDeletedAt: deletedAt.Format(time.RFC3339Nano)},
	)

	snap, err := history.View(card, rec)
	require.NoError(t, err)
	require.NotNil(t, snap.DeletedAt)
	assert.True(t, deletedAt.Equal(*snap.DeletedAt))
	assert.True(t, snap.Trashed())
}

func TestViewMalformedValues(t *testing.T) {
	t.Parallel()

	card := newCard(t, "Q1", "A1")

	tests := []struct {
		name      string
		newValues domain.FieldValues
	}{
		{
			name:      "non-string question",
			newValues: domain.FieldValues{domain.FieldQuestion: 42},
		},
		{
			name:      "unknown status",
			newValues: domain.FieldValues{domain.FieldStatus: "Definitely"},
		},
		{
			name:      "unparseable deleted_at",
			newValues: domain.FieldValues{domain.FieldDeletedAt: "yesterday"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := newRecord(t, card, domain.FieldValues{}, tt.newValues)
			_, err := history.View(card, rec)
			assert.ErrorIs(t, err, history.ErrMalformedValue)
		})
	}
}
