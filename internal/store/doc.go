// Package store defines the persistence interfaces for cardlog entities
// along with shared database plumbing: the DBTX abstraction, transaction
// helpers, and the error taxonomy store implementations must honor.
package store
