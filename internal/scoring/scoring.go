// Package scoring computes the point breakdown for a single answer.
package scoring

import (
	"time"

	"github.com/abhisek/adaptiq/internal/question"
)

const (
	// BasePoints is the score of a correct medium question before bonuses.
	BasePoints = 10.0

	// TimeBonus is awarded for a correct answer within TimeLimit.
	TimeBonus = 5.0

	// TimeLimit is the cutoff for the time bonus, independent of any UI countdown.
	TimeLimit = 60 * time.Second

	// HintPenalty is charged per hint revealed on a question.
	HintPenalty = 2.0

	// partialCreditMinOptions is the option count at which multi-answer
	// questions become eligible for partial credit.
	partialCreditMinOptions = 4
)

// Breakdown is the scoring result for one answer.
type Breakdown struct {
	BaseScore          float64 `json:"baseScore"`
	TimeBonus          float64 `json:"timeBonus"`
	PartialCredit      float64 `json:"partialCredit"`
	HintPenalty        float64 `json:"hintPenalty"`
	TotalPoints        float64 `json:"totalPoints"`
	AnsweredWithinTime bool    `json:"answeredWithinTime"`
}

// Multiplier returns the difficulty multiplier applied to BasePoints.
func Multiplier(d question.Difficulty) float64 {
	switch d {
	case question.DifficultyEasy:
		return 0.8
	case question.DifficultyHard:
		return 1.2
	default:
		return 1.0
	}
}

// Score computes the breakdown for an answer to q. Partial credit is only
// possible on incorrect multi-answer questions with at least four options;
// when awarded it is reported in PartialCredit and folded into BaseScore.
// TotalPoints is not floored.
func Score(q *question.Question, correct bool, elapsed time.Duration, hintsUsed int, a question.Answer) Breakdown {
	b := Breakdown{
		AnsweredWithinTime: elapsed <= TimeLimit,
		HintPenalty:        float64(hintsUsed) * HintPenalty,
	}
	full := BasePoints * Multiplier(q.Difficulty)

	switch {
	case correct:
		b.BaseScore = full
		if b.AnsweredWithinTime {
			b.TimeBonus = TimeBonus
		}
	case q.IsMultiAnswer() && len(q.Options) >= partialCreditMinOptions:
		selected := question.CorrectSelected(q, a)
		if selected > 0 {
			b.PartialCredit = full * float64(selected) / float64(len(q.CorrectIDs))
			b.BaseScore = b.PartialCredit
		}
	}

	b.TotalPoints = b.BaseScore + b.TimeBonus - b.HintPenalty
	return b
}

// Seconds converts a client-reported duration in seconds.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
