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
// STUDY FLASHCARD SET COMMAND
// Records that a user studied a flashcard set. Intentionally has no XP,
// level, streak or badge side effects: studying alone does not advance
// gamification state in this design.
// ══════════════════════════════════════════════════════════════════════════════

// StudyFlashcardSetCommand records a flashcard study session.
type StudyFlashcardSetCommand struct {
	UserID         progress.UserID
	FlashcardSetID string
}

// Validate validates the command.
func (c StudyFlashcardSetCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.NewDomainError("progress", "StudyFlashcardSet", shared.ErrInvalidID, "user id is required")
	}
	if c.FlashcardSetID == "" {
		return shared.NewDomainError("progress", "StudyFlashcardSet", shared.ErrEmptyValue, "flashcard set id is required")
	}
	return nil
}

// StudyFlashcardSetResult is the outcome of a study session.
type StudyFlashcardSetResult struct {
	// Progress is the snapshot after the event.
	Progress progress.Progress

	// FirstStudy reports whether the set was newly added; a repeat study
	// of a known set changes nothing and performs no write.
	FirstStudy bool
}

// StudyFlashcardSetHandler handles StudyFlashcardSetCommand.
type StudyFlashcardSetHandler struct {
	store progress.Store
	cache progress.Cache // optional
	bus   shared.EventPublisher
	log   *logger.Logger
	now   func() time.Time
	retry retry.Config
}

// NewStudyFlashcardSetHandler creates the handler. cache and bus may be nil.
func NewStudyFlashcardSetHandler(store progress.Store, cache progress.Cache, bus shared.EventPublisher, log *logger.Logger) *StudyFlashcardSetHandler {
	h := &StudyFlashcardSetHandler{
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

// Handle records the study session under the same version-guarded cycle
// as quiz completions.
func (h *StudyFlashcardSetHandler) Handle(ctx context.Context, cmd StudyFlashcardSetCommand) (*StudyFlashcardSetResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		after progress.Progress
		first bool
	)

	err := retry.Do(ctx, h.retry, func() error {
		current, version, err := h.store.Load(ctx, cmd.UserID)
		if shared.IsNotFound(err) {
			current, version = progress.NewProgress(cmd.UserID), 0
		} else if err != nil {
			return err
		}

		next, changed := progress.ApplyStudySession(current, cmd.FlashcardSetID)
		if changed {
			if _, err := h.store.Save(ctx, next, version); err != nil {
				return err
			}
		}

		after, first = next, changed
		return nil
	})
	if err != nil {
		if shared.IsConflict(err) {
			return nil, shared.WrapError("progress", "StudyFlashcardSet", shared.ErrTransient,
				"persistent version conflict", err)
		}
		return nil, err
	}

	if first {
		if h.bus != nil {
			ev := shared.NewBaseEvent(shared.EventFlashcardsStudied, cmd.UserID.String(), h.now())
			if pubErr := h.bus.Publish(flashcardsStudiedEvent{BaseEvent: ev, SetID: cmd.FlashcardSetID}); pubErr != nil {
				h.log.Warn("event publish failed", logger.Err(pubErr))
			}
		}
		h.invalidateCache(ctx, cmd.UserID)
	}

	h.log.Debug("flashcard set studied",
		logger.String("user_id", cmd.UserID.String()),
		logger.String("set_id", cmd.FlashcardSetID),
		logger.Bool("first_study", first))

	return &StudyFlashcardSetResult{Progress: after, FirstStudy: first}, nil
}

func (h *StudyFlashcardSetHandler) invalidateCache(ctx context.Context, userID progress.UserID) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(ctx, userID); err != nil {
		h.log.Warn("cache invalidation failed",
			logger.String("user_id", userID.String()),
			logger.Err(err))
	}
}

// flashcardsStudiedEvent is the thin event emitted for first-time studies.
type flashcardsStudiedEvent struct {
	shared.BaseEvent
	SetID string `json:"set_id"`
}

// Payload implements shared.Event.
func (e flashcardsStudiedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"set_id": e.SetID}
}
