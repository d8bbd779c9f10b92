package session

import "context"

// Store defines the persistence contract for session records. Implementations
// must be safe for concurrent use; single-record operations are atomic
// (whole-document replace, last writer wins).
type Store interface {
	// Create persists a new record. Returns ErrDuplicateSession if a record
	// with the same SessionID already exists.
	Create(ctx context.Context, record *Record) error

	// Read returns the record for the given identifier, or ErrNotFound.
	// Read does not consider expiration; that is the resolver's job.
	Read(ctx context.Context, sessionID string) (*Record, error)

	// Update atomically replaces the stored record. Returns ErrNotFound if
	// no record with a matching SessionID exists.
	Update(ctx context.Context, record *Record) error

	// Delete removes the record. Deleting a non-existent session is not an
	// error.
	Delete(ctx context.Context, sessionID string) error

	// Healthcheck verifies the backing store is reachable.
	Healthcheck(ctx context.Context) error
}
