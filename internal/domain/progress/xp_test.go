package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuizXP(t *testing.T) {
	// Base award only.
	assert.Equal(t, 20, QuizXP(0, false))

	// Per-correct-answer award.
	assert.Equal(t, 70, QuizXP(5, false))

	// Streak bonus on top.
	assert.Equal(t, 25, QuizXP(0, true))
	assert.Equal(t, 65, QuizXP(4, true))
}

func TestLevelForXP(t *testing.T) {
	cases := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{199, 2},
		{200, 3},
		{250, 3},
		{1000, 11},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelForXP(tc.xp), "xp=%d", tc.xp)
	}

	// Negative XP never occurs in a valid record but must not panic or
	// produce level zero.
	assert.Equal(t, 1, LevelForXP(-50))
}
