package progress

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduverse/progress-engine/internal/domain/shared"
)

func answers(correct, wrong int) []QuizAnswer {
	out := make([]QuizAnswer, 0, correct+wrong)
	for i := 0; i < correct; i++ {
		out = append(out, QuizAnswer{QuestionID: fmt.Sprintf("q%d", i), SelectedAnswer: 0, CorrectAnswer: 0, IsCorrect: true})
	}
	for i := 0; i < wrong; i++ {
		out = append(out, QuizAnswer{QuestionID: fmt.Sprintf("w%d", i), SelectedAnswer: 1, CorrectAnswer: 0, IsCorrect: false})
	}
	return out
}

func TestUserID_IsValid(t *testing.T) {
	assert.False(t, UserID("").IsValid())
	assert.True(t, UserID("user-1").IsValid())
	assert.True(t, UserID(strings.Repeat("a", 128)).IsValid())
	assert.False(t, UserID(strings.Repeat("a", 129)).IsValid())
}

func TestQuizCompletion_Validate(t *testing.T) {
	valid := QuizCompletion{
		QuizID:         "quiz-1",
		Score:          4,
		TotalQuestions: 5,
		Answers:        answers(4, 1),
	}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.QuizID = ""
	assert.ErrorIs(t, missing.Validate(), shared.ErrEmptyValue)

	empty := valid
	empty.TotalQuestions = 0
	empty.Answers = nil
	empty.Score = 0
	assert.ErrorIs(t, empty.Validate(), shared.ErrValueOutOfRange)

	over := valid
	over.Score = 6
	assert.ErrorIs(t, over.Validate(), shared.ErrValueOutOfRange)

	negative := valid
	negative.Score = -1
	assert.ErrorIs(t, negative.Validate(), shared.ErrValueOutOfRange)

	mismatch := valid
	mismatch.Answers = answers(3, 1)
	assert.ErrorIs(t, mismatch.Validate(), shared.ErrValidation)
}

func TestApplyQuizCompletion_FreshUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("user-1")

	completion := QuizCompletion{
		QuizID:         "quiz-1",
		QuizTitle:      "Go Basics",
		Score:          4,
		TotalQuestions: 5,
		Answers:        answers(4, 1),
	}
	require.NoError(t, completion.Validate())

	next, unlocked := ApplyQuizCompletion(p, completion, now)

	// 20 base + 4*10 correct + 5 streak bonus.
	assert.Equal(t, 65, next.XP)
	assert.Equal(t, 1, next.Level)
	assert.Equal(t, 1, next.Streak)
	assert.Equal(t, now, next.LastActivityAt)
	assert.Equal(t, 1, next.CompletedQuizzes)
	assert.Equal(t, 4, next.TotalQuizScore)

	require.Len(t, next.QuizResults, 1)
	result := next.QuizResults[0]
	assert.Equal(t, "quiz-1", result.QuizID)
	assert.Equal(t, "Go Basics", result.QuizTitle)
	assert.Equal(t, 65, result.XPEarned)
	assert.Equal(t, now, result.CompletedAt)
	assert.Len(t, result.Answers, 5)

	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_quiz", unlocked[0].ID)

	// The input record is untouched.
	assert.Equal(t, 0, p.XP)
	assert.Empty(t, p.QuizResults)

	assert.NoError(t, next.CheckInvariants())
}

func TestApplyQuizCompletion_LevelUp(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("user-1")
	p.XP = 95
	p.Level = LevelForXP(p.XP)
	p.Streak = 2
	p.LastActivityAt = now.Add(-72 * time.Hour)
	p.CompletedQuizzes = 3
	p.Badges = []Badge{{ID: "first_quiz", Title: "First Steps", Emoji: "🏅", UnlockedAt: now.Add(-96 * time.Hour)}}

	// The 72h gap breaks the streak, so it restarts at 1 with no bonus
	// (1 is not greater than the previous streak of 2): 20 base only.
	completion := QuizCompletion{
		QuizID:         "quiz-4",
		Score:          0,
		TotalQuestions: 1,
		Answers:        answers(0, 1),
	}
	next, unlocked := ApplyQuizCompletion(p, completion, now)

	assert.Equal(t, 115, next.XP)
	assert.Equal(t, 2, next.Level)
	assert.Equal(t, 1, next.Streak)

	// xp_100 unlocks on crossing the boundary; first_quiz stays put.
	require.Len(t, unlocked, 1)
	assert.Equal(t, "xp_100", unlocked[0].ID)
	assert.Len(t, next.Badges, 2)
	assert.Equal(t, "first_quiz", next.Badges[0].ID)
}

func TestApplyQuizCompletion_StreakBonusOnExtension(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("user-1")
	p.Streak = 3
	p.LastActivityAt = now.Add(-24 * time.Hour)

	completion := QuizCompletion{
		QuizID:         "quiz-1",
		Score:          1,
		TotalQuestions: 1,
		Answers:        answers(1, 0),
	}
	next, _ := ApplyQuizCompletion(p, completion, now)

	assert.Equal(t, 4, next.Streak)
	// 20 + 10 + 5 streak bonus.
	assert.Equal(t, 35, next.XP)
}

func TestApplyQuizCompletion_ResultsAppendOnly(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("user-1")

	for i := 0; i < 3; i++ {
		completion := QuizCompletion{
			QuizID:         fmt.Sprintf("quiz-%d", i),
			Score:          1,
			TotalQuestions: 1,
			Answers:        answers(1, 0),
		}
		p, _ = ApplyQuizCompletion(p, completion, now.Add(time.Duration(i)*time.Hour))
	}

	require.Len(t, p.QuizResults, 3)
	assert.Equal(t, "quiz-0", p.QuizResults[0].QuizID)
	assert.Equal(t, "quiz-2", p.QuizResults[2].QuizID)
	assert.NoError(t, p.CheckInvariants())

	// Retaking a quiz appends a second entry; nothing is replaced.
	retake := QuizCompletion{QuizID: "quiz-0", Score: 1, TotalQuestions: 1, Answers: answers(1, 0)}
	p, _ = ApplyQuizCompletion(p, retake, now.Add(4*time.Hour))
	assert.Len(t, p.QuizResults, 4)
	assert.Equal(t, 4, p.CompletedQuizzes)
}

func TestApplyStudySession(t *testing.T) {
	p := NewProgress("user-1")

	next, changed := ApplyStudySession(p, "set-b")
	assert.True(t, changed)
	assert.Equal(t, []string{"set-b"}, next.StudiedFlashcardSets)

	// No gamification side effects.
	assert.Equal(t, 0, next.XP)
	assert.Equal(t, 0, next.Streak)
	assert.Empty(t, next.Badges)

	next2, changed := ApplyStudySession(next, "set-a")
	assert.True(t, changed)
	assert.Equal(t, []string{"set-a", "set-b"}, next2.StudiedFlashcardSets)

	// Repeat study is a no-op.
	next3, changed := ApplyStudySession(next2, "set-b")
	assert.False(t, changed)
	assert.Equal(t, next2.StudiedFlashcardSets, next3.StudiedFlashcardSets)
}

func TestProgress_Clone_Independence(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("user-1")
	completion := QuizCompletion{QuizID: "quiz-1", Score: 1, TotalQuestions: 1, Answers: answers(1, 0)}
	p, _ = ApplyQuizCompletion(p, completion, now)
	p, _ = ApplyStudySession(p, "set-1")

	c := p.Clone()
	c.Badges[0].ID = "mutated"
	c.QuizResults[0].Answers[0].QuestionID = "mutated"
	c.StudiedFlashcardSets[0] = "mutated"

	assert.Equal(t, "first_quiz", p.Badges[0].ID)
	assert.Equal(t, "q0", p.QuizResults[0].Answers[0].QuestionID)
	assert.Equal(t, "set-1", p.StudiedFlashcardSets[0])
}

func TestProgress_CheckInvariants(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	valid := NewProgress("user-1")
	assert.NoError(t, valid.CheckInvariants())

	badLevel := NewProgress("user-1")
	badLevel.XP = 150
	badLevel.Level = 1
	assert.ErrorIs(t, badLevel.CheckInvariants(), shared.ErrCorruptRecord)

	dupBadge := NewProgress("user-1")
	dupBadge.Badges = []Badge{{ID: "first_quiz"}, {ID: "first_quiz"}}
	assert.ErrorIs(t, dupBadge.CheckInvariants(), shared.ErrCorruptRecord)

	outOfOrder := NewProgress("user-1")
	outOfOrder.QuizResults = []QuizResult{
		{QuizID: "a", CompletedAt: now},
		{QuizID: "b", CompletedAt: now.Add(-time.Hour)},
	}
	assert.ErrorIs(t, outOfOrder.CheckInvariants(), shared.ErrCorruptRecord)

	dupSet := NewProgress("user-1")
	dupSet.StudiedFlashcardSets = []string{"set-1", "set-1"}
	assert.ErrorIs(t, dupSet.CheckInvariants(), shared.ErrCorruptRecord)

	negative := NewProgress("user-1")
	negative.XP = -1
	assert.ErrorIs(t, negative.CheckInvariants(), shared.ErrCorruptRecord)
}
