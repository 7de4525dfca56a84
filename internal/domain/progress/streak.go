package progress

import (
	"time"

	"github.com/eduverse/progress-engine/pkg/timeutil"
)

// ActivityWindow is the span within which a new qualifying event extends
// the current streak. Two events inside the window on the same calendar
// day both extend it: the rule is a rolling 48-hour cooldown, not a
// calendar-day cadence. That behaviour is kept deliberately; see DESIGN.md
// before changing it to day-based tracking.
const ActivityWindow = 2 * 24 * time.Hour

// ComputeStreak returns the updated streak for an event at now, given the
// previous activity time and the current streak. Pure and total for all
// inputs: a zero lastActivity means "never active".
//
//   - no prior activity: streak starts at 1
//   - elapsed < 48h: streak extends by 1
//   - otherwise: streak is broken and restarts at 1
func ComputeStreak(lastActivity, now time.Time, current int) int {
	if lastActivity.IsZero() {
		return 1
	}
	if timeutil.WithinWindow(lastActivity, now, ActivityWindow) {
		return current + 1
	}
	return 1
}

// StreakExpiresAt returns the instant after which the streak breaks if no
// further activity occurs. The zero time means there is no streak to lose.
func StreakExpiresAt(lastActivity time.Time) time.Time {
	if lastActivity.IsZero() {
		return time.Time{}
	}
	return lastActivity.Add(ActivityWindow)
}
