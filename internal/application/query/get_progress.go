// Package query contains the read operations of the progress engine
// (CQRS queries).
package query

import (
	"context"
	"time"

	"github.com/eduverse/progress-engine/internal/domain/progress"
	"github.com/eduverse/progress-engine/internal/domain/shared"
	"github.com/eduverse/progress-engine/pkg/logger"
)

// GetProgressQuery requests a user's progress snapshot.
type GetProgressQuery struct {
	UserID progress.UserID
}

// Validate validates the query.
func (q GetProgressQuery) Validate() error {
	if !q.UserID.IsValid() {
		return shared.NewDomainError("progress", "GetProgress", shared.ErrInvalidID, "user id is required")
	}
	return nil
}

// GetProgressResult carries the snapshot and how it was obtained.
type GetProgressResult struct {
	// Progress is the current snapshot. For a user with no persisted
	// record this is the zero state, materialized lazily and not yet
	// written to the store.
	Progress progress.Progress

	// Persisted reports whether a stored record backs the snapshot.
	Persisted bool

	// FromCache reports whether the snapshot was served from cache.
	FromCache bool
}

// GetProgressHandler handles GetProgressQuery with cache-aside reads.
type GetProgressHandler struct {
	store    progress.Store
	cache    progress.Cache // optional
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewGetProgressHandler creates the handler. cache may be nil.
func NewGetProgressHandler(store progress.Store, cache progress.Cache, cacheTTL time.Duration, log *logger.Logger) *GetProgressHandler {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &GetProgressHandler{store: store, cache: cache, cacheTTL: cacheTTL, log: log}
}

// Handle returns the user's snapshot, creating the zero state in memory
// when no record exists yet. Zero-state snapshots are never cached: the
// first mutating event must observe the store directly.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*GetProgressResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		cached, found, err := h.cache.Get(ctx, q.UserID)
		if err != nil {
			h.log.Warn("progress cache read failed",
				logger.String("user_id", q.UserID.String()),
				logger.Err(err))
		} else if found {
			return &GetProgressResult{Progress: cached, Persisted: true, FromCache: true}, nil
		}
	}

	p, _, err := h.store.Load(ctx, q.UserID)
	if shared.IsNotFound(err) {
		return &GetProgressResult{Progress: progress.NewProgress(q.UserID)}, nil
	}
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if cacheErr := h.cache.Set(ctx, p, h.cacheTTL); cacheErr != nil {
			h.log.Warn("progress cache write failed",
				logger.String("user_id", q.UserID.String()),
				logger.Err(cacheErr))
		}
	}

	return &GetProgressResult{Progress: p, Persisted: true}, nil
}
