package session

import (
	"strings"

	"github.com/abhisek/adaptiq/internal/question"
)

// wrongStreakNudge is the streak length at which feedback suggests review.
const wrongStreakNudge = 3

// Feedback builds the learner-facing message for an answer. It is a pure
// template over correctness, difficulty, timeliness and the wrong streak.
func Feedback(correct bool, d question.Difficulty, withinTime bool, wrongStreak int) string {
	var b strings.Builder
	if correct {
		switch d {
		case question.DifficultyHard:
			b.WriteString("Excellent! That was a hard one.")
		case question.DifficultyEasy:
			b.WriteString("Correct.")
		default:
			b.WriteString("Well done!")
		}
		if withinTime {
			b.WriteString(" Quick thinking earned you a time bonus.")
		}
		return b.String()
	}

	switch d {
	case question.DifficultyHard:
		b.WriteString("Not quite. This one is tricky, so don't be discouraged.")
	case question.DifficultyEasy:
		b.WriteString("Not quite. Re-read the question carefully.")
	default:
		b.WriteString("Not quite.")
	}
	if !withinTime {
		b.WriteString(" Try breaking the problem into smaller steps.")
	}
	if wrongStreak >= wrongStreakNudge {
		b.WriteString(" Consider reviewing this topic before moving on.")
	}
	return b.String()
}
