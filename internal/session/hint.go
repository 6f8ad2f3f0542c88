package session

import "math"

// HintReveal is the result of a successful hint request.
type HintReveal struct {
	Hint           string  `json:"hint"`
	HintIndex      int     `json:"hintIndex"`
	Penalty        float64 `json:"penalty"`
	TotalScore     float64 `json:"totalScore"`
	HintsRemaining int     `json:"hintsRemaining"`
	QuestionID     int64   `json:"questionId"`
}

// HintPenalty is subtracted from the session total on every reveal.
const HintPenalty = 2.0

// HintThreshold returns how many wrong attempts on a question unlock its
// hints. Lower ability unlocks hints sooner.
func HintThreshold(ability float64) int {
	switch {
	case ability < 0.3:
		return 2
	case ability < 0.6:
		return 3
	default:
		return 4
	}
}

// RevealHint reveals the next hint of the current question and charges the
// penalty against the session total, floored at 0. On error s is unchanged.
func RevealHint(s *State) (*HintReveal, error) {
	if s.IsCompleted() {
		return nil, conflict(ErrSessionCompleted)
	}
	if s.CurrentQuestionID == 0 {
		return nil, conflict(ErrNoCurrentQuestion)
	}
	q := s.Question(s.CurrentQuestionID)
	if q == nil {
		return nil, &NotFoundError{Resource: "question", ID: formatID(s.CurrentQuestionID)}
	}
	if len(q.Hints) == 0 {
		return nil, conflict(ErrNoHints)
	}

	// Revealed hints stay revealed when a missed question is served again,
	// so the next hint follows the question's own count.
	revealed, wrong := 0, 0
	if a, ok := s.QuestionAttempts[q.ID]; ok {
		revealed, wrong = a.HintsUsed, a.WrongAttempts()
	}
	if wrong < HintThreshold(s.AbilityEstimate) {
		return nil, conflict(ErrHintLocked)
	}
	if revealed >= len(q.Hints) {
		return nil, conflict(ErrHintsExhausted)
	}

	idx := revealed
	s.CurrentHintsUsed++
	s.HintsUsed++
	s.attempt(q.ID).HintsUsed++
	s.TotalScore = math.Max(0, s.TotalScore-HintPenalty)

	return &HintReveal{
		Hint:           q.Hints[idx],
		HintIndex:      idx,
		Penalty:        HintPenalty,
		TotalScore:     s.TotalScore,
		HintsRemaining: len(q.Hints) - idx - 1,
		QuestionID:     q.ID,
	}, nil
}
