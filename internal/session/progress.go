package session

// QuestionAttempt tracks a learner's history with one question in a session.
type QuestionAttempt struct {
	Attempts  int `json:"attempts"`
	Correct   int `json:"correct"`
	HintsUsed int `json:"hintsUsed"`
}

// Record adds a new answer result.
func (a *QuestionAttempt) Record(correct bool) {
	a.Attempts++
	if correct {
		a.Correct++
	}
}

// WrongAttempts returns the number of incorrect submissions.
func (a *QuestionAttempt) WrongAttempts() int {
	return a.Attempts - a.Correct
}

// Progress is the position of the learner in the session.
type Progress struct {
	Current         int     `json:"current"`
	Total           int     `json:"total"`
	AbilityEstimate float64 `json:"abilityEstimate"`
}

// TopicPercentage returns the official score percentage, which excludes
// remedial questions. It is 0 when no official question was answered.
func (s *State) TopicPercentage() float64 {
	if s.CurrentTopicQuestions == 0 {
		return 0
	}
	return float64(s.CurrentTopicScore) / float64(s.CurrentTopicQuestions) * 100
}
