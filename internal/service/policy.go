package service

// AuditPolicy controls which flashcard mutations append audit records.
//
// The shipped behavior is deliberately uneven: edits, soft-deletes and
// restores are audited, while creation and revert writes are not. Rather
// than scatter that decision across call sites, the policy makes it one
// visible, testable piece of configuration.
//
// Bulk progress resets never audit regardless of policy: the reset is a
// single bulk statement and produces no per-row before/after values.
type AuditPolicy struct {
	// Create appends an audit record (empty old values, full new values)
	// when a flashcard is created.
	Create bool

	// Update appends an audit record when an edit or practice attempt
	// changes at least one tracked field.
	Update bool

	// SoftDelete appends an audit record when a flashcard is soft-deleted.
	SoftDelete bool

	// Restore appends an audit record when a soft-deleted flashcard is
	// restored.
	Restore bool

	// Revert appends an audit record when a revert changes the flashcard.
	// Off by default, so reverts are invisible in the audit trail; turning
	// this on is the safe way to close that gap.
	Revert bool
}

// DefaultAuditPolicy returns the policy the product shipped with.
func DefaultAuditPolicy() AuditPolicy {
	return AuditPolicy{
		Update:     true,
		SoftDelete: true,
		Restore:    true,
	}
}
