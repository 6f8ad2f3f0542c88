package session

import (
	"math"
	"time"

	"github.com/abhisek/adaptiq/internal/store"
)

// PassPercentage is the official percentage needed to pass a quiz.
const PassPercentage = 75.0

// Results holds the final outcome of a session.
type Results struct {
	SessionID              string          `json:"sessionId"`
	QuizID                 string          `json:"quizId"`
	AttemptNumber          int             `json:"attemptNumber"`
	CurrentTopicPercentage float64         `json:"currentTopicPercentage"`
	QuizPassed             bool            `json:"quizPassed"`
	TotalScore             float64         `json:"totalScore"`
	TimeSpent              float64         `json:"timeSpent"`
	AbilityEstimate        float64         `json:"abilityEstimate"`
	InitialAbility         float64         `json:"initialAbility"`
	QuestionsAnswered      int             `json:"questionsAnswered"`
	TotalQuestions         int             `json:"totalQuestions"`
	HintsUsed              int             `json:"hintsUsed"`
	WeakTopics             []string        `json:"weakTopics"`
	QuestionScores         []QuestionScore `json:"questionScores"`
}

// BuildResults computes the results of s. It does not mutate s.
func BuildResults(s *State) *Results {
	pct := s.TopicPercentage()
	return &Results{
		SessionID:              s.ID,
		QuizID:                 s.QuizID(),
		CurrentTopicPercentage: pct,
		QuizPassed:             pct >= PassPercentage,
		TotalScore:             s.TotalScore,
		TimeSpent:              s.TimeSpent,
		AbilityEstimate:        s.AbilityEstimate,
		InitialAbility:         s.InitialAbility,
		QuestionsAnswered:      s.QuestionsAnswered,
		TotalQuestions:         s.TotalQuestions,
		HintsUsed:              s.HintsUsed,
		WeakTopics:             s.WeakTopics,
		QuestionScores:         s.QuestionScores,
	}
}

// attemptRecord converts results to the permanent attempt record.
func attemptRecord(s *State, r *Results, now time.Time) *store.AttemptRecord {
	return &store.AttemptRecord{
		ID:                s.ID,
		UserID:            s.UserID,
		QuizID:            r.QuizID,
		Score:             r.CurrentTopicPercentage,
		TimeTaken:         r.TimeSpent,
		QuestionsAnswered: r.QuestionsAnswered,
		TotalQuestions:    r.TotalQuestions,
		AbilityEstimate:   r.AbilityEstimate,
		Passed:            r.QuizPassed,
		CreatedAt:         now,
	}
}

// MergeProgress folds the results of one attempt into the previous
// aggregate progress (nil for the first attempt). Once passed, a quiz
// stays passed.
func MergeProgress(prev *store.ProgressRecord, s *State, r *Results, now time.Time) *store.ProgressRecord {
	next := &store.ProgressRecord{
		UserID:        s.UserID,
		QuizID:        r.QuizID,
		Year:          s.Year,
		Subject:       s.Subject,
		Topic:         s.Topic,
		Passed:        r.QuizPassed,
		LastScore:     r.CurrentTopicPercentage,
		BestScore:     r.CurrentTopicPercentage,
		TotalAttempts: 1,
		LastActivity:  now,
	}
	if prev != nil {
		next.Passed = prev.Passed || r.QuizPassed
		next.BestScore = math.Max(prev.BestScore, r.CurrentTopicPercentage)
		next.TotalAttempts = prev.TotalAttempts + 1
	}
	return next
}
