package progress

// Gamification constants. These mirror the values the mobile client has
// always shown users, so changing them is a product decision, not a tuning
// knob.
const (
	// XPPerQuiz is the base award for finishing any quiz.
	XPPerQuiz = 20

	// XPPerCorrectAnswer is awarded per correctly answered question.
	XPPerCorrectAnswer = 10

	// XPStreakBonus is awarded when a quiz extends or starts a streak.
	XPStreakBonus = 5

	// XPPerLevel is the width of a level band.
	XPPerLevel = 100
)

// QuizXP returns the XP earned by a quiz attempt: a flat completion award,
// a per-correct-answer award, and a streak bonus when the attempt
// increased the streak. Integer arithmetic only.
func QuizXP(correctAnswers int, streakIncreased bool) int {
	xp := XPPerQuiz + correctAnswers*XPPerCorrectAnswer
	if streakIncreased {
		xp += XPStreakBonus
	}
	return xp
}

// LevelForXP derives the level from total XP: floor(xp/100) + 1. Level is
// always a function of XP and must never be set independently.
func LevelForXP(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP/XPPerLevel + 1
}
