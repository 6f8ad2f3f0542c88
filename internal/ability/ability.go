// Package ability tracks a learner's proficiency with a single-parameter
// logistic update. It is a fixed-learning-rate approximation of IRT
// ability tracking, not a calibrated model.
package ability

import (
	"math"

	"github.com/abhisek/adaptiq/internal/question"
)

const (
	// Min and Max bound every ability estimate.
	Min = 0.1
	Max = 0.9

	// LearningRate scales the residual applied on each answer.
	LearningRate = 0.1

	// Default is the starting ability when no history matches.
	Default = 0.5

	minInitial = 0.2
	maxInitial = 0.9

	passedWeight = 1.2
	failedWeight = 0.8
)

// DifficultyScore maps a difficulty band onto the ability scale.
func DifficultyScore(d question.Difficulty) float64 {
	switch d {
	case question.DifficultyEasy:
		return 0.3
	case question.DifficultyHard:
		return 0.7
	default:
		return 0.5
	}
}

// Expected returns the probability that a learner of the given ability
// answers an item of the given difficulty score correctly.
func Expected(ability, difficulty float64) float64 {
	return 1.0 / (1.0 + math.Exp(-(ability - difficulty)))
}

// Update returns the ability after one answer. The result is always within
// [Min, Max] and depends only on its inputs.
func Update(ability float64, d question.Difficulty, correct bool) float64 {
	expected := Expected(ability, DifficultyScore(d))
	if correct {
		ability += LearningRate * (1 - expected)
	} else {
		ability -= LearningRate * expected
	}
	return clamp(ability, Min, Max)
}

// Progress is one historical-progress fact for a learner.
type Progress struct {
	Year    string
	Subject string
	Topic   string

	// TopicProgress is the last recorded percentage (0-100) for the topic.
	TopicProgress float64
	// Passed is true if the quiz for the topic was ever passed.
	Passed bool
}

// Initial derives a starting ability from history matching subject and
// year. Passed quizzes weigh 1.2x, failed ones 0.8x. The weighted mean of
// TopicProgress/100 is clamped to [0.2, 0.9]; with no matching history the
// result is Default.
func Initial(history []Progress, subject, year string) float64 {
	var sum, weights float64
	for _, p := range history {
		if p.Subject != subject || p.Year != year {
			continue
		}
		w := failedWeight
		if p.Passed {
			w = passedWeight
		}
		sum += w * (p.TopicProgress / 100)
		weights += w
	}
	if weights == 0 {
		return Default
	}
	return clamp(sum/weights, minInitial, maxInitial)
}

// TargetDifficulty maps an ability onto the centre of the difficulty band
// questions should be drawn from.
func TargetDifficulty(ability float64) float64 {
	switch {
	case ability < 0.4:
		return 0.3
	case ability < 0.7:
		return 0.5
	default:
		return 0.7
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
