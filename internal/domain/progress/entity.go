// Package progress contains the student progress aggregate: experience
// points, levels, activity streaks, badges and quiz history. This is the
// core of the gamification engine - there are no infrastructure
// dependencies here, only the data model and the pure rules that evolve it.
//
// Progress is an immutable value type. Every operation that changes a
// record produces a new value; shared state is never mutated in place.
// This makes the load-compute-save cycle of the service layer explicit
// and keeps concurrent readers safe by construction.
package progress

import (
	"fmt"
	"sort"
	"time"

	"github.com/eduverse/progress-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UserID is the opaque identifier of an authenticated user. It is issued
// by the identity provider; the engine never interprets its contents.
type UserID string

// IsValid checks that the user ID is non-empty and has no surrounding noise.
func (u UserID) IsValid() bool {
	s := string(u)
	return len(s) > 0 && len(s) <= 128
}

// String returns the string representation of the user ID.
func (u UserID) String() string {
	return string(u)
}

// Badge represents a one-time achievement unlock. The ID is the stable key
// that drives idempotency; UnlockedAt is immutable once set.
type Badge struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Emoji       string    `json:"emoji"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// QuizAnswer records a single answered question inside a quiz attempt.
type QuizAnswer struct {
	QuestionID     string `json:"question_id"`
	SelectedAnswer int    `json:"selected_answer"`
	CorrectAnswer  int    `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
}

// QuizResult records one finished quiz attempt. XPEarned includes the
// streak bonus awarded for that attempt.
type QuizResult struct {
	QuizID         string       `json:"quiz_id"`
	QuizTitle      string       `json:"quiz_title"`
	Score          int          `json:"score"`
	TotalQuestions int          `json:"total_questions"`
	XPEarned       int          `json:"xp_earned"`
	CompletedAt    time.Time    `json:"completed_at"`
	Answers        []QuizAnswer `json:"answers"`
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Progress is the durable per-user aggregate of XP, level, streak, badges
// and history. One record exists per user, created lazily on first access.
//
// Invariants:
//   - XP never decreases over the record's lifetime.
//   - Level always equals LevelForXP(XP); it is persisted for read
//     convenience but never hand-set.
//   - Badges contains no duplicate IDs and is append-only in evaluation
//     order; UnlockedAt never changes once set.
//   - QuizResults is append-only, ordered by CompletedAt.
//   - StudiedFlashcardSets is a set (no duplicates).
type Progress struct {
	UserID               UserID       `json:"user_id"`
	XP                   int          `json:"xp"`
	Level                int          `json:"level"`
	Streak               int          `json:"streak"`
	LastActivityAt       time.Time    `json:"last_activity_at"` // zero = never active
	CompletedQuizzes     int          `json:"completed_quizzes"`
	TotalQuizScore       int          `json:"total_quiz_score"`
	Badges               []Badge      `json:"badges"`
	QuizResults          []QuizResult `json:"quiz_results"`
	StudiedFlashcardSets []string     `json:"studied_flashcard_sets"`
}

// NewProgress returns the zero-state record for a user. The record is not
// persisted until the first mutating event.
func NewProgress(userID UserID) Progress {
	return Progress{
		UserID: userID,
		Level:  LevelForXP(0),
	}
}

// HasBadge reports whether a badge with the given ID is already present.
func (p Progress) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// HasStudied reports whether a flashcard set is already in the studied set.
func (p Progress) HasStudied(setID string) bool {
	for _, s := range p.StudiedFlashcardSets {
		if s == setID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record. Callers receive independent
// slices so a held snapshot can never be mutated through aliasing.
func (p Progress) Clone() Progress {
	c := p
	c.Badges = append([]Badge(nil), p.Badges...)
	c.QuizResults = make([]QuizResult, len(p.QuizResults))
	for i, r := range p.QuizResults {
		r.Answers = append([]QuizAnswer(nil), r.Answers...)
		c.QuizResults[i] = r
	}
	c.StudiedFlashcardSets = append([]string(nil), p.StudiedFlashcardSets...)
	return c
}

// CheckInvariants verifies the structural invariants of a record. A loaded
// record that fails this check is a data-corruption signal and must abort
// loudly rather than be repaired or swallowed.
func (p Progress) CheckInvariants() error {
	const domain = "progress"

	if !p.UserID.IsValid() {
		return shared.NewDomainError(domain, "CheckInvariants", shared.ErrCorruptRecord, "empty user id")
	}
	if p.XP < 0 || p.Streak < 0 || p.CompletedQuizzes < 0 || p.TotalQuizScore < 0 {
		return shared.NewDomainError(domain, "CheckInvariants", shared.ErrCorruptRecord, "negative counter")
	}
	if p.Level != LevelForXP(p.XP) {
		return shared.NewDomainError(domain, "CheckInvariants", shared.ErrCorruptRecord,
			fmt.Sprintf("level %d does not match xp %d", p.Level, p.XP))
	}

	seen := make(map[string]bool, len(p.Badges))
	for _, b := range p.Badges {
		if seen[b.ID] {
			return shared.NewDomainError(domain, "CheckInvariants", shared.ErrCorruptRecord,
				fmt.Sprintf("duplicate badge %q", b.ID))
		}
		seen[b.ID] = true
	}

	for i := 1; i < len(p.QuizResults); i++ {
		if p.QuizResults[i].CompletedAt.Before(p.QuizResults[i-1].CompletedAt) {
			return shared.NewDomainError(domain, "CheckInvariants", shared.ErrCorruptRecord,
				"quiz results out of order")
		}
	}

	studied := make(map[string]bool, len(p.StudiedFlashcardSets))
	for _, s := range p.StudiedFlashcardSets {
		if studied[s] {
			return shared.NewDomainError(domain, "CheckInvariants", shared.ErrCorruptRecord,
				fmt.Sprintf("duplicate studied set %q", s))
		}
		studied[s] = true
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT INPUTS
// ══════════════════════════════════════════════════════════════════════════════

// QuizCompletion is the input describing one finished quiz attempt.
type QuizCompletion struct {
	QuizID         string
	QuizTitle      string
	Score          int
	TotalQuestions int
	Answers        []QuizAnswer
}

// Validate rejects malformed quiz completions before any read-modify-write
// begins. Failure leaves no state change.
func (q QuizCompletion) Validate() error {
	const op = "QuizCompletion.Validate"

	if q.QuizID == "" {
		return shared.NewDomainError("progress", op, shared.ErrEmptyValue, "quiz id is required")
	}
	if q.TotalQuestions <= 0 {
		return shared.NewDomainError("progress", op, shared.ErrValueOutOfRange, "total questions must be positive")
	}
	if q.Score < 0 || q.Score > q.TotalQuestions {
		return shared.NewDomainError("progress", op, shared.ErrValueOutOfRange,
			fmt.Sprintf("score %d out of range [0, %d]", q.Score, q.TotalQuestions))
	}
	if len(q.Answers) != q.TotalQuestions {
		return shared.NewDomainError("progress", op, shared.ErrValidation,
			fmt.Sprintf("expected %d answers, got %d", q.TotalQuestions, len(q.Answers)))
	}
	return nil
}

// CorrectAnswers counts the answers marked correct.
func (q QuizCompletion) CorrectAnswers() int {
	n := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// ApplyQuizCompletion produces the record that results from a validated
// quiz completion at the given time, plus the badges newly unlocked by it.
// The receiver is never modified.
func ApplyQuizCompletion(p Progress, q QuizCompletion, now time.Time) (Progress, []Badge) {
	next := p.Clone()

	newStreak := ComputeStreak(p.LastActivityAt, now, p.Streak)
	earned := QuizXP(q.CorrectAnswers(), newStreak > p.Streak)

	next.XP = p.XP + earned
	next.Level = LevelForXP(next.XP)
	next.Streak = newStreak
	next.LastActivityAt = now
	next.CompletedQuizzes = p.CompletedQuizzes + 1
	next.TotalQuizScore = p.TotalQuizScore + q.Score
	next.QuizResults = append(next.QuizResults, QuizResult{
		QuizID:         q.QuizID,
		QuizTitle:      q.QuizTitle,
		Score:          q.Score,
		TotalQuestions: q.TotalQuestions,
		XPEarned:       earned,
		CompletedAt:    now,
		Answers:        append([]QuizAnswer(nil), q.Answers...),
	})

	all, unlocked := EvaluateBadges(next, now)
	next.Badges = all

	return next, unlocked
}

// ApplyStudySession adds a flashcard set to the studied set. It has no XP,
// level, streak or badge side effects: studying alone does not advance
// gamification state. The boolean reports whether the record changed.
func ApplyStudySession(p Progress, setID string) (Progress, bool) {
	if p.HasStudied(setID) {
		return p, false
	}

	next := p.Clone()
	next.StudiedFlashcardSets = append(next.StudiedFlashcardSets, setID)
	sort.Strings(next.StudiedFlashcardSets)
	return next, true
}
