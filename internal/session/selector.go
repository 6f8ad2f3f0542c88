package session

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/abhisek/adaptiq/internal/ability"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/store"
)

// Rand is the source of uniform choices. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// globalRand draws from the goroutine-safe top-level math/rand/v2 source.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// SelectNext chooses the next question for s, or nil once the budget is
// exhausted or nothing is left to serve. Phases are checked in fixed order
// on every call: repetition, remediation, then steady-state adaptive.
func SelectNext(s *State, r Rand) (*question.Question, Phase) {
	if s.BudgetExhausted() {
		return nil, PhaseAdaptive
	}
	answered := float64(s.QuestionsAnswered)
	total := float64(s.TotalQuestions)

	if answered >= repetitionStart*total && len(s.IncorrectQuestions) > 0 {
		var missed []*question.Question
		for _, id := range s.IncorrectQuestions {
			if q := s.Question(id); q != nil {
				missed = append(missed, q)
			}
		}
		if q := pick(missed, r); q != nil {
			return q, PhaseRepetition
		}
	}

	target := ability.TargetDifficulty(s.AbilityEstimate)
	unanswered := s.unanswered()

	if answered < remediationEnd*total && len(s.WeakTopics) > 0 {
		var weak []*question.Question
		for _, q := range unanswered {
			if s.matchesWeakTopic(q) {
				weak = append(weak, q)
			}
		}
		if q := pick(inBand(weak, target), r); q != nil {
			return q, PhaseRemediation
		}
	}

	// Weak-topic questions left over from remediation are served only once
	// the quiz's own topic is used up.
	own := slices.DeleteFunc(slices.Clone(unanswered), s.isOffTopic)
	for _, qs := range [][]*question.Question{inBand(own, target), own, inBand(unanswered, target)} {
		if q := pick(qs, r); q != nil {
			return q, PhaseAdaptive
		}
	}
	return pick(unanswered, r), PhaseAdaptive
}

func (s *State) unanswered() []*question.Question {
	var out []*question.Question
	for i := range s.Available {
		if !s.isAnswered(s.Available[i].ID) {
			out = append(out, &s.Available[i])
		}
	}
	return out
}

// matchesWeakTopic reports whether q belongs to one of the session's weak
// topics. Questions without year or subject inherit the session's.
func (s *State) matchesWeakTopic(q *question.Question) bool {
	if q.Topic == "" {
		return false
	}
	return slices.Contains(s.WeakTopics, s.topicKey(q))
}

// isOffTopic reports whether q belongs to a topic other than the quiz's.
// Off-topic questions never count toward the official percentage.
func (s *State) isOffTopic(q *question.Question) bool {
	return q.Topic != "" && s.topicKey(q) != s.QuizID()
}

// topicKey returns the key of q's topic, inheriting the session's year and
// subject where q has none.
func (s *State) topicKey(q *question.Question) string {
	year, subject := q.Year, q.Subject
	if year == "" {
		year = s.Year
	}
	if subject == "" {
		subject = s.Subject
	}
	return store.TopicKey(year, subject, q.Topic)
}

// inBand keeps questions whose difficulty score is within bandWidth of target.
func inBand(qs []*question.Question, target float64) []*question.Question {
	var out []*question.Question
	for _, q := range qs {
		if math.Abs(ability.DifficultyScore(q.Difficulty)-target) <= bandWidth {
			out = append(out, q)
		}
	}
	return out
}

func pick(qs []*question.Question, r Rand) *question.Question {
	if len(qs) == 0 {
		return nil
	}
	return qs[r.IntN(len(qs))]
}
