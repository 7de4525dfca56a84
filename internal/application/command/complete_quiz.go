// Package command contains the write operations of the progress engine
// (CQRS commands). Each handler owns one load-compute-save cycle against
// the progress store; the pure gamification rules live in domain/progress.
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
// COMPLETE QUIZ COMMAND
// The central operation of the engine: applies a quiz completion to a
// user's record through the streak calculator, XP ledger and badge rule
// engine, and persists the new snapshot atomically under the version guard.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteQuizCommand carries one finished quiz attempt.
type CompleteQuizCommand struct {
	UserID         progress.UserID
	QuizID         string
	QuizTitle      string
	Score          int
	TotalQuestions int
	Answers        []progress.QuizAnswer
}

// Validate rejects malformed commands before any state is touched.
func (c CompleteQuizCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.NewDomainError("progress", "CompleteQuiz", shared.ErrInvalidID, "user id is required")
	}
	return progress.QuizCompletion{
		QuizID:         c.QuizID,
		QuizTitle:      c.QuizTitle,
		Score:          c.Score,
		TotalQuestions: c.TotalQuestions,
		Answers:        c.Answers,
	}.Validate()
}

// CompleteQuizResult is the outcome of a successful quiz completion.
type CompleteQuizResult struct {
	// Progress is the persisted snapshot after the event.
	Progress progress.Progress

	// UnlockedBadges is the delta of badges first unlocked by this call.
	// Used by the presentation layer for celebratory display; loss of the
	// notification is harmless because the badges are already persisted.
	UnlockedBadges []progress.Badge

	// XPEarned is the XP awarded for this attempt, streak bonus included.
	XPEarned int

	// LeveledUp reports whether the attempt crossed a level boundary.
	LeveledUp bool

	// Events are the domain events that were published.
	Events []shared.Event
}

// CompleteQuizHandler handles CompleteQuizCommand.
type CompleteQuizHandler struct {
	store progress.Store
	cache progress.Cache // optional
	bus   shared.EventPublisher
	log   *logger.Logger
	now   func() time.Time
	retry retry.Config
}

// NewCompleteQuizHandler creates the handler. cache and bus may be nil.
func NewCompleteQuizHandler(store progress.Store, cache progress.Cache, bus shared.EventPublisher, log *logger.Logger) *CompleteQuizHandler {
	h := &CompleteQuizHandler{
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

// WithClock overrides the time source. Intended for tests.
func (h *CompleteQuizHandler) WithClock(now func() time.Time) *CompleteQuizHandler {
	h.now = now
	return h
}

// Handle applies the quiz completion. Concurrent calls for the same user
// are serialized by the store's version guard: a conflicting save retries
// the whole load-compute-save cycle from a fresh load, up to the attempt
// budget, then surfaces a transient failure. No partial state is ever
// visible to the caller.
func (h *CompleteQuizHandler) Handle(ctx context.Context, cmd CompleteQuizCommand) (*CompleteQuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	completion := progress.QuizCompletion{
		QuizID:         cmd.QuizID,
		QuizTitle:      cmd.QuizTitle,
		Score:          cmd.Score,
		TotalQuestions: cmd.TotalQuestions,
		Answers:        cmd.Answers,
	}

	var (
		before   progress.Progress
		after    progress.Progress
		unlocked []progress.Badge
	)

	err := retry.Do(ctx, h.retry, func() error {
		current, version, err := h.store.Load(ctx, cmd.UserID)
		if shared.IsNotFound(err) {
			current, version = progress.NewProgress(cmd.UserID), 0
		} else if err != nil {
			return err
		}

		next, newBadges := progress.ApplyQuizCompletion(current, completion, h.now())

		if _, err := h.store.Save(ctx, next, version); err != nil {
			return err
		}

		before, after, unlocked = current, next, newBadges
		return nil
	})
	if err != nil {
		if shared.IsConflict(err) {
			h.log.Warn("quiz completion retries exhausted",
				logger.String("user_id", cmd.UserID.String()),
				logger.String("quiz_id", cmd.QuizID))
			return nil, shared.WrapError("progress", "CompleteQuiz", shared.ErrTransient,
				"persistent version conflict", err)
		}
		return nil, err
	}

	earned := after.XP - before.XP
	result := &CompleteQuizResult{
		Progress:       after,
		UnlockedBadges: unlocked,
		XPEarned:       earned,
		LeveledUp:      after.Level > before.Level,
	}
	result.Events = h.publishEvents(cmd, before, after, unlocked)

	h.log.Info("quiz completed",
		logger.String("user_id", cmd.UserID.String()),
		logger.String("quiz_id", cmd.QuizID),
		logger.Int("xp_earned", earned),
		logger.Int("streak", after.Streak),
		logger.Int("badges_unlocked", len(unlocked)))

	return result, nil
}

// publishEvents emits the domain events for an applied completion. The
// record is already durable; publish failures are logged, never surfaced.
func (h *CompleteQuizHandler) publishEvents(cmd CompleteQuizCommand, before, after progress.Progress, unlocked []progress.Badge) []shared.Event {
	at := after.LastActivityAt

	events := []shared.Event{
		progress.NewQuizCompletedEvent(cmd.UserID, cmd.QuizID, cmd.Score, after.XP-before.XP, after.XP, after.Streak, at),
	}
	if earned := after.XP - before.XP; earned > 0 {
		events = append(events, progress.NewXPGainedEvent(cmd.UserID, earned, after.XP, at))
	}
	if after.Level > before.Level {
		events = append(events, progress.NewLevelUpEvent(cmd.UserID, before.Level, after.Level, at))
	}
	if after.Streak > before.Streak {
		events = append(events, progress.NewStreakExtendedEvent(cmd.UserID, after.Streak, at))
	} else if before.Streak > 0 {
		events = append(events, progress.NewStreakBrokenEvent(cmd.UserID, before.Streak, at))
	}
	for _, b := range unlocked {
		events = append(events, progress.NewBadgeUnlockedEvent(cmd.UserID, b))
	}

	if h.bus != nil {
		for _, ev := range events {
			if err := h.bus.Publish(ev); err != nil {
				h.log.Warn("event publish failed",
					logger.String("event_type", string(ev.EventType())),
					logger.Err(err))
			}
		}
	}

	h.invalidateCache(cmd.UserID)
	return events
}

func (h *CompleteQuizHandler) invalidateCache(userID progress.UserID) {
	if h.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.cache.Delete(ctx, userID); err != nil {
		h.log.Warn("cache invalidation failed",
			logger.String("user_id", userID.String()),
			logger.Err(err))
	}
}
