package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateBadges_FirstQuiz(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("user-1")
	p.XP = 65
	p.Level = LevelForXP(p.XP)
	p.Streak = 1
	p.CompletedQuizzes = 1

	all, unlocked := EvaluateBadges(p, now)

	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_quiz", unlocked[0].ID)
	assert.Equal(t, "First Steps", unlocked[0].Title)
	assert.Equal(t, "🏅", unlocked[0].Emoji)
	assert.Equal(t, now, unlocked[0].UnlockedAt)
	assert.Equal(t, all, unlocked)
}

func TestEvaluateBadges_Idempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("user-1")
	p.CompletedQuizzes = 1

	first, unlocked := EvaluateBadges(p, now)
	require.Len(t, unlocked, 1)
	p.Badges = first

	// Re-evaluating the same snapshot yields an empty delta and an
	// unchanged list with the original unlock time.
	later := now.Add(time.Hour)
	again, delta := EvaluateBadges(p, later)
	assert.Empty(t, delta)
	assert.Equal(t, first, again)
	assert.Equal(t, now, again[0].UnlockedAt)
}

func TestEvaluateBadges_ThresholdCrossing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := NewProgress("user-1")
	p.CompletedQuizzes = 9
	p.XP = 180
	p.Level = LevelForXP(p.XP)
	all, _ := EvaluateBadges(p, now)
	p.Badges = all // first_quiz, xp_100

	// The 10th quiz crosses exactly one threshold.
	p.CompletedQuizzes = 10
	p.XP = 200
	p.Level = LevelForXP(p.XP)
	all, unlocked := EvaluateBadges(p, now.Add(time.Hour))

	require.Len(t, unlocked, 1)
	assert.Equal(t, "quiz_10", unlocked[0].ID)
	assert.Len(t, all, 3)
}

func TestEvaluateBadges_MultipleAtOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("user-1")
	p.CompletedQuizzes = 1
	p.XP = 105
	p.Level = LevelForXP(p.XP)
	p.Streak = 1

	_, unlocked := EvaluateBadges(p, now)

	// Both thresholds satisfied in one event, appended in table order.
	require.Len(t, unlocked, 2)
	assert.Equal(t, "first_quiz", unlocked[0].ID)
	assert.Equal(t, "xp_100", unlocked[1].ID)
}

func TestEvaluateBadges_StreakBadges(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("user-1")
	p.Streak = 7

	_, unlocked := EvaluateBadges(p, now)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "streak_7", unlocked[0].ID)

	p.Streak = 30
	_, unlocked = EvaluateBadges(p, now)
	require.Len(t, unlocked, 2)
	assert.Equal(t, "streak_7", unlocked[0].ID)
	assert.Equal(t, "streak_30", unlocked[1].ID)
}

func TestBadgeRules_TableIsStable(t *testing.T) {
	rules := BadgeRules()
	require.Len(t, rules, 7)

	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{
		"first_quiz", "quiz_10", "quiz_50",
		"xp_100", "xp_500",
		"streak_7", "streak_30",
	}, ids)

	// The returned slice is a copy; mutating it must not affect the table.
	rules[0].ID = "mutated"
	assert.Equal(t, "first_quiz", BadgeRules()[0].ID)
}
