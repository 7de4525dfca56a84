package progress

import (
	"time"

	"github.com/eduverse/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN EVENTS
// Emitted after a progress record is durably persisted. Delivery to the
// presentation layer is best-effort: a lost BadgeUnlocked notification is
// never a correctness problem because the badge is already recorded.
// ══════════════════════════════════════════════════════════════════════════════

// QuizCompletedEvent is emitted when a quiz completion has been applied.
type QuizCompletedEvent struct {
	shared.BaseEvent
	UserID   string `json:"user_id"`
	QuizID   string `json:"quiz_id"`
	Score    int    `json:"score"`
	XPEarned int    `json:"xp_earned"`
	NewXP    int    `json:"new_xp"`
	Streak   int    `json:"streak"`
}

// Payload implements shared.Event.
func (e QuizCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"quiz_id":   e.QuizID,
		"score":     e.Score,
		"xp_earned": e.XPEarned,
		"new_xp":    e.NewXP,
		"streak":    e.Streak,
	}
}

// NewQuizCompletedEvent creates a QuizCompletedEvent.
func NewQuizCompletedEvent(userID UserID, quizID string, score, xpEarned, newXP, streak int, at time.Time) QuizCompletedEvent {
	return QuizCompletedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventQuizCompleted, userID.String(), at),
		UserID:    userID.String(),
		QuizID:    quizID,
		Score:     score,
		XPEarned:  xpEarned,
		NewXP:     newXP,
		Streak:    streak,
	}
}

// XPGainedEvent is emitted whenever an event awards XP.
type XPGainedEvent struct {
	shared.BaseEvent
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	NewXP  int    `json:"new_xp"`
}

// Payload implements shared.Event.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"amount":  e.Amount,
		"new_xp":  e.NewXP,
	}
}

// NewXPGainedEvent creates an XPGainedEvent.
func NewXPGainedEvent(userID UserID, amount, newXP int, at time.Time) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventXPGained, userID.String(), at),
		UserID:    userID.String(),
		Amount:    amount,
		NewXP:     newXP,
	}
}

// LevelUpEvent is emitted when a quiz completion crosses a level boundary.
type LevelUpEvent struct {
	shared.BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
}

// Payload implements shared.Event.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// NewLevelUpEvent creates a LevelUpEvent.
func NewLevelUpEvent(userID UserID, oldLevel, newLevel int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, userID.String(), at),
		UserID:    userID.String(),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// BadgeUnlockedEvent is emitted once per first unlock of a badge. The
// existence check in the rule engine guarantees at-most-once emission per
// badge per user.
type BadgeUnlockedEvent struct {
	shared.BaseEvent
	UserID string `json:"user_id"`
	Badge  Badge  `json:"badge"`
}

// Payload implements shared.Event.
func (e BadgeUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"badge_id":    e.Badge.ID,
		"title":       e.Badge.Title,
		"emoji":       e.Badge.Emoji,
		"unlocked_at": e.Badge.UnlockedAt.Format(time.RFC3339),
	}
}

// NewBadgeUnlockedEvent creates a BadgeUnlockedEvent.
func NewBadgeUnlockedEvent(userID UserID, badge Badge) BadgeUnlockedEvent {
	return BadgeUnlockedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventBadgeUnlocked, userID.String(), badge.UnlockedAt),
		UserID:    userID.String(),
		Badge:     badge,
	}
}

// StreakExtendedEvent is emitted when a quiz completion starts or extends
// the activity streak.
type StreakExtendedEvent struct {
	shared.BaseEvent
	UserID string `json:"user_id"`
	Streak int    `json:"streak"`
}

// Payload implements shared.Event.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"streak":  e.Streak,
	}
}

// NewStreakExtendedEvent creates a StreakExtendedEvent.
func NewStreakExtendedEvent(userID UserID, streak int, at time.Time) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventStreakExtended, userID.String(), at),
		UserID:    userID.String(),
		Streak:    streak,
	}
}

// StreakBrokenEvent is emitted when a quiz completion restarts a streak
// that was previously greater than zero.
type StreakBrokenEvent struct {
	shared.BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
}

// Payload implements shared.Event.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
	}
}

// NewStreakBrokenEvent creates a StreakBrokenEvent.
func NewStreakBrokenEvent(userID UserID, previousStreak int, at time.Time) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      shared.NewBaseEvent(shared.EventStreakBroken, userID.String(), at),
		UserID:         userID.String(),
		PreviousStreak: previousStreak,
	}
}

// ProgressResetEvent is emitted after an authorized reset reinitialized a
// record to zero state.
type ProgressResetEvent struct {
	shared.BaseEvent
	UserID string `json:"user_id"`
}

// Payload implements shared.Event.
func (e ProgressResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"user_id": e.UserID}
}

// NewProgressResetEvent creates a ProgressResetEvent.
func NewProgressResetEvent(userID UserID, at time.Time) ProgressResetEvent {
	return ProgressResetEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventProgressReset, userID.String(), at),
		UserID:    userID.String(),
	}
}
