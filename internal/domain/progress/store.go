package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE INTERFACES
// These interfaces define the contract for progress persistence.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Version is the optimistic-concurrency token of a stored record. Zero
// means "record does not exist yet"; a Save with expected version zero is
// an insert.
type Version int64

// Store persists progress records with optimistic concurrency control.
// The version guard is what serializes concurrent read-modify-write
// cycles per user: a Save whose expected version no longer matches the
// stored one fails with shared.ErrVersionConflict and the caller must
// retry the whole cycle from a fresh Load.
type Store interface {
	// Load returns the record and its current version.
	// Returns shared.ErrNotFound if no record exists for the user.
	// Returns shared.ErrCorruptRecord if the stored record violates a
	// domain invariant.
	Load(ctx context.Context, userID UserID) (Progress, Version, error)

	// Save persists a record if the stored version still equals expected
	// (zero expected inserts a new record). Returns the new version on
	// success and shared.ErrVersionConflict if the guard fails.
	Save(ctx context.Context, p Progress, expected Version) (Version, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// Cache is a read-through snapshot cache in front of the Store. It is
// never authoritative: losing an entry only costs a Load.
type Cache interface {
	// Get returns the cached snapshot, or found=false on a miss.
	Get(ctx context.Context, userID UserID) (p Progress, found bool, err error)

	// Set stores a snapshot with a TTL.
	Set(ctx context.Context, p Progress, ttl time.Duration) error

	// Delete invalidates the cached snapshot for a user.
	Delete(ctx context.Context, userID UserID) error
}
