// Package memory implements an in-process progress store with the same
// optimistic-concurrency contract as the PostgreSQL implementation. Used
// by tests and for local development without a database.
package memory

import (
	"context"
	"sync"

	"github.com/eduverse/progress-engine/internal/domain/progress"
	"github.com/eduverse/progress-engine/internal/domain/shared"
)

// Store is a mutex-guarded, versioned in-memory progress.Store.
type Store struct {
	mu      sync.RWMutex
	records map[progress.UserID]record
}

type record struct {
	p       progress.Progress
	version progress.Version
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{records: make(map[progress.UserID]record)}
}

// Load returns a deep copy of the record and its version.
func (s *Store) Load(ctx context.Context, userID progress.UserID) (progress.Progress, progress.Version, error) {
	if err := ctx.Err(); err != nil {
		return progress.Progress{}, 0, shared.WrapError("progress", "Load", shared.ErrTimeout, "context done", err)
	}

	s.mu.RLock()
	rec, ok := s.records[userID]
	s.mu.RUnlock()

	if !ok {
		return progress.Progress{}, 0, shared.NewDomainError("progress", "Load", shared.ErrNotFound,
			"no progress record for user")
	}
	if err := rec.p.CheckInvariants(); err != nil {
		return progress.Progress{}, 0, err
	}
	return rec.p.Clone(), rec.version, nil
}

// Save persists the record if the stored version still matches expected.
func (s *Store) Save(ctx context.Context, p progress.Progress, expected progress.Version) (progress.Version, error) {
	if err := ctx.Err(); err != nil {
		return 0, shared.WrapError("progress", "Save", shared.ErrTimeout, "context done", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.records[p.UserID]
	switch {
	case !exists && expected != 0:
		return 0, shared.NewDomainError("progress", "Save", shared.ErrVersionConflict,
			"record vanished since load")
	case exists && current.version != expected:
		return 0, shared.NewDomainError("progress", "Save", shared.ErrVersionConflict,
			"stored version changed since load")
	}

	next := expected + 1
	s.records[p.UserID] = record{p: p.Clone(), version: next}
	return next, nil
}

// Ping implements progress.Store.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
