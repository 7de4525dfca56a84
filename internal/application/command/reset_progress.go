package command

import (
	"context"
	"time"

	"github.com/eduverse/progress-engine/internal/domain/progress"
	"github.com/eduverse/progress-engine/internal/domain/shared"
	"github.com/eduverse/progress-engine/pkg/logger"
	"github.com/eduverse/progress-engine/pkg/retry"
	"github.com/eduverse/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET PROGRESS COMMAND
// Reinitializes a record to zero state, clearing badges and quiz history.
// Authorization is the caller's responsibility: this handler performs no
// permission check, the interface layer gates the route.
// ══════════════════════════════════════════════════════════════════════════════

// ResetProgressCommand requests a progress reset.
type ResetProgressCommand struct {
	UserID progress.UserID

	// RequestedBy identifies the authorizing principal, for the audit log.
	RequestedBy string
}

// Validate validates the command.
func (c ResetProgressCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.NewDomainError("progress", "ResetProgress", shared.ErrInvalidID, "user id is required")
	}
	return nil
}

// ResetProgressResult is the outcome of a reset.
type ResetProgressResult struct {
	// Progress is the reinitialized zero-state snapshot.
	Progress progress.Progress
}

// ResetProgressHandler handles ResetProgressCommand.
type ResetProgressHandler struct {
	store progress.Store
	cache progress.Cache // optional
	bus   shared.EventPublisher
	log   *logger.Logger
	now   func() time.Time
	retry retry.Config
}

// NewResetProgressHandler creates the handler. cache and bus may be nil.
func NewResetProgressHandler(store progress.Store, cache progress.Cache, bus shared.EventPublisher, log *logger.Logger) *ResetProgressHandler {
	h := &ResetProgressHandler{
		store: store,
		cache: cache,
		bus:   bus,
		log:   log,
		now:   timeutil.NowUTC,
		retry: retry.DefaultConfig(),
	}
	h.retry.RetryIf = shared.IsConflict
	return h
}

// Handle resets the record. This is the strict variant: resetting a user
// that has no persisted record returns shared.ErrNotFound.
func (h *ResetProgressHandler) Handle(ctx context.Context, cmd ResetProgressCommand) (*ResetProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var after progress.Progress

	err := retry.Do(ctx, h.retry, func() error {
		_, version, err := h.store.Load(ctx, cmd.UserID)
		if err != nil {
			return retry.Permanent(err)
		}

		next := progress.NewProgress(cmd.UserID)
		if _, err := h.store.Save(ctx, next, version); err != nil {
			return err
		}

		after = next
		return nil
	})
	if err != nil {
		if shared.IsConflict(err) {
			return nil, shared.WrapError("progress", "ResetProgress", shared.ErrTransient,
				"persistent version conflict", err)
		}
		return nil, err
	}

	if h.bus != nil {
		if pubErr := h.bus.Publish(progress.NewProgressResetEvent(cmd.UserID, h.now())); pubErr != nil {
			h.log.Warn("event publish failed", logger.Err(pubErr))
		}
	}
	if h.cache != nil {
		if cacheErr := h.cache.Delete(ctx, cmd.UserID); cacheErr != nil {
			h.log.Warn("cache invalidation failed", logger.Err(cacheErr))
		}
	}

	h.log.Info("progress reset",
		logger.String("user_id", cmd.UserID.String()),
		logger.String("requested_by", cmd.RequestedBy))

	return &ResetProgressResult{Progress: after}, nil
}
