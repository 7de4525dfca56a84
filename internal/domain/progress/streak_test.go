package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeStreak_FirstActivity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, ComputeStreak(time.Time{}, now, 0))
	// A stale current value is ignored when there was no prior activity.
	assert.Equal(t, 1, ComputeStreak(time.Time{}, now, 5))
}

func TestComputeStreak_WithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 4, ComputeStreak(now.Add(-time.Hour), now, 3))
	assert.Equal(t, 4, ComputeStreak(now.Add(-47*time.Hour), now, 3))

	// Two qualifying events on the same day both extend the streak: the
	// window is a rolling cooldown, not calendar days.
	assert.Equal(t, 2, ComputeStreak(now.Add(-time.Minute), now, 1))
}

func TestComputeStreak_Broken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, ComputeStreak(now.Add(-ActivityWindow), now, 9))
	assert.Equal(t, 1, ComputeStreak(now.Add(-72*time.Hour), now, 9))
}

func TestComputeStreak_ExactBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Strictly less than 48h extends; exactly 48h breaks.
	assert.Equal(t, 3, ComputeStreak(now.Add(-ActivityWindow+time.Nanosecond), now, 2))
	assert.Equal(t, 1, ComputeStreak(now.Add(-ActivityWindow), now, 2))
}

func TestStreakExpiresAt(t *testing.T) {
	assert.True(t, StreakExpiresAt(time.Time{}).IsZero())

	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, last.Add(48*time.Hour), StreakExpiresAt(last))
}
