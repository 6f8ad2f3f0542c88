package session

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/abhisek/adaptiq/internal/ability"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/scoring"
)

// MaxTimeSpent is the largest accepted per-answer duration, in seconds.
const MaxTimeSpent = 300.0

var errTimeSpentRange = errors.New("must be between 0 and 300 seconds")

// AnswerOutcome is the result of HandleAnswer.
type AnswerOutcome struct {
	Question        *question.Question
	Correct         bool
	Score           scoring.Breakdown
	HintsUsed       int
	Remedial        bool
	Repeated        bool
	Feedback        string
	AbilityEstimate float64
	Completed       bool
}

// HandleAnswer validates and applies one submission to s. It covers every
// in-memory effect of an answer; the weakness update is the caller's. On
// error s is unchanged.
func HandleAnswer(s *State, questionID int64, a question.Answer, timeSpent float64, now time.Time) (*AnswerOutcome, error) {
	if err := a.Validate(); err != nil {
		return nil, &ValidationError{Field: "answer", Err: err}
	}
	if math.IsNaN(timeSpent) || timeSpent < 0 || timeSpent > MaxTimeSpent {
		return nil, &ValidationError{Field: "timeSpent", Err: errTimeSpentRange}
	}
	if s.IsCompleted() {
		return nil, conflict(ErrSessionCompleted)
	}

	q := s.Question(questionID)
	if q == nil {
		return nil, &NotFoundError{Resource: "question", ID: formatID(questionID)}
	}
	if s.isMastered(q.ID) {
		return nil, conflict(ErrAlreadyMastered)
	}

	correct := question.CheckAnswer(q, a)
	remedial := s.isRemedial(q.ID) || s.isOffTopic(q)

	att := s.attempt(q.ID)
	repeated := att.Attempts > 0
	att.Record(correct)

	s.AnsweredQuestions = appendUnique(s.AnsweredQuestions, q.ID)
	if correct {
		s.IncorrectQuestions = remove(s.IncorrectQuestions, q.ID)
	} else {
		s.IncorrectQuestions = appendUnique(s.IncorrectQuestions, q.ID)
	}

	hints := 0
	if q.ID == s.CurrentQuestionID {
		hints = s.CurrentHintsUsed
	}
	b := scoring.Score(q, correct, scoring.Seconds(timeSpent), hints, a)

	s.TotalScore = math.Max(0, s.TotalScore+b.TotalPoints)
	s.TimeSpent += timeSpent
	s.QuestionsAnswered++
	if !remedial {
		s.CurrentTopicQuestions++
		if correct {
			s.CurrentTopicScore++
		}
	}

	s.AbilityEstimate = ability.Update(s.AbilityEstimate, q.Difficulty, correct)

	if correct {
		s.ConsecutiveWrongAnswers = 0
	} else {
		s.ConsecutiveWrongAnswers++
	}

	s.QuestionScores = append(s.QuestionScores, QuestionScore{
		QuestionID: q.ID,
		Topic:      q.Topic,
		Difficulty: q.Difficulty,
		Correct:    correct,
		Points:     b.TotalPoints,
		Breakdown:  b,
		TimeSpent:  timeSpent,
		HintsUsed:  hints,
		IsRemedial: remedial,
		AnsweredAt: now,
	})

	if q.ID == s.CurrentQuestionID {
		// Revealed hints are charged once, on the answer that follows them.
		s.AwaitingAnswer = false
		s.CurrentHintsUsed = 0
	}
	if s.BudgetExhausted() {
		s.complete()
	}

	return &AnswerOutcome{
		Question:        q,
		Correct:         correct,
		Score:           b,
		HintsUsed:       hints,
		Remedial:        remedial,
		Repeated:        repeated,
		Feedback:        Feedback(correct, q.Difficulty, b.AnsweredWithinTime, s.ConsecutiveWrongAnswers),
		AbilityEstimate: s.AbilityEstimate,
		Completed:       s.IsCompleted(),
	}, nil
}

// Serve makes the next question current. While the current question is
// unanswered it is returned again, so repeated calls are idempotent. It
// returns nil and completes s when nothing more can be served.
func Serve(s *State, r Rand) (*question.Question, Phase) {
	if s.IsCompleted() {
		return nil, PhaseAdaptive
	}
	if s.AwaitingAnswer {
		if q := s.Question(s.CurrentQuestionID); q != nil {
			phase := PhaseAdaptive
			switch {
			case s.isRemedial(q.ID):
				phase = PhaseRemediation
			case s.isIncorrect(q.ID):
				phase = PhaseRepetition
			}
			return q, phase
		}
	}

	q, phase := SelectNext(s, r)
	if q == nil {
		s.complete()
		return nil, phase
	}

	s.CurrentQuestionID = q.ID
	s.AwaitingAnswer = true
	s.CurrentHintsUsed = 0
	if phase == PhaseRemediation || s.isOffTopic(q) {
		s.RemedialQuestions = appendUnique(s.RemedialQuestions, q.ID)
	}
	return q, phase
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
