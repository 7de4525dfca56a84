package progress

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// BADGE RULE ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// BadgeRule describes one unlockable badge: a stable ID, the predicate
// that unlocks it, and the presentation data shown to the user.
type BadgeRule struct {
	ID          string
	Title       string
	Description string
	Emoji       string
	Predicate   func(Progress) bool
}

// badgeRules is the fixed, ordered rule table. Evaluation order is part of
// the contract: badges are appended in this order and the persisted order
// is preserved forever.
var badgeRules = []BadgeRule{
	{
		ID:          "first_quiz",
		Title:       "First Steps",
		Description: "Complete your first quiz",
		Emoji:       "🏅",
		Predicate:   func(p Progress) bool { return p.CompletedQuizzes >= 1 },
	},
	{
		ID:          "quiz_10",
		Title:       "Quiz Novice",
		Description: "Complete 10 quizzes",
		Emoji:       "🎯",
		Predicate:   func(p Progress) bool { return p.CompletedQuizzes >= 10 },
	},
	{
		ID:          "quiz_50",
		Title:       "Quiz Expert",
		Description: "Complete 50 quizzes",
		Emoji:       "🏆",
		Predicate:   func(p Progress) bool { return p.CompletedQuizzes >= 50 },
	},
	{
		ID:          "xp_100",
		Title:       "Rising Star",
		Description: "Earn 100 XP",
		Emoji:       "⭐",
		Predicate:   func(p Progress) bool { return p.XP >= 100 },
	},
	{
		ID:          "xp_500",
		Title:       "Super Star",
		Description: "Earn 500 XP",
		Emoji:       "🌟",
		Predicate:   func(p Progress) bool { return p.XP >= 500 },
	},
	{
		ID:          "streak_7",
		Title:       "Week Warrior",
		Description: "Maintain a 7-day streak",
		Emoji:       "🔥",
		Predicate:   func(p Progress) bool { return p.Streak >= 7 },
	},
	{
		ID:          "streak_30",
		Title:       "Dedication Master",
		Description: "Maintain a 30-day streak",
		Emoji:       "💪",
		Predicate:   func(p Progress) bool { return p.Streak >= 30 },
	},
}

// BadgeRules returns the rule table in evaluation order.
func BadgeRules() []BadgeRule {
	rules := make([]BadgeRule, len(badgeRules))
	copy(rules, badgeRules)
	return rules
}

// EvaluateBadges evaluates the rule table against a snapshot and the
// badges it already holds. It returns the complete badge list (existing
// plus newly appended, never reordered or replaced) and the delta of
// badges unlocked by this call.
//
// The existence check by ID makes unlocks idempotent: re-evaluating a
// snapshot that already satisfies a rule never yields a duplicate, and
// the delta for an already-unlocked badge is always empty.
func EvaluateBadges(p Progress, now time.Time) (all []Badge, unlocked []Badge) {
	all = append([]Badge(nil), p.Badges...)

	for _, rule := range badgeRules {
		if !rule.Predicate(p) || p.HasBadge(rule.ID) {
			continue
		}
		b := Badge{
			ID:          rule.ID,
			Title:       rule.Title,
			Description: rule.Description,
			Emoji:       rule.Emoji,
			UnlockedAt:  now,
		}
		all = append(all, b)
		unlocked = append(unlocked, b)
	}

	return all, unlocked
}
