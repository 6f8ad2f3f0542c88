package session

import (
	"slices"
	"time"

	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/scoring"
	"github.com/abhisek/adaptiq/internal/store"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// DefaultMaxQuestions is the question budget used when none is requested.
const DefaultMaxQuestions = 10

// QuestionScore is the audit entry for one answer submission.
type QuestionScore struct {
	QuestionID int64               `json:"questionId"`
	Topic      string              `json:"topic"`
	Difficulty question.Difficulty `json:"difficulty"`
	Correct    bool                `json:"isCorrect"`
	Points     float64             `json:"points"`
	Breakdown  scoring.Breakdown   `json:"breakdown"`
	TimeSpent  float64             `json:"timeSpent"`
	HintsUsed  int                 `json:"hintsUsed"`
	IsRemedial bool                `json:"isRemedial"`
	AnsweredAt time.Time           `json:"answeredAt"`
}

// State is the quiz session aggregate. It is owned by a single attempt and
// serialized whole between requests.
type State struct {
	ID      string `json:"sessionId"`
	UserID  string `json:"userId"`
	Year    string `json:"year"`
	Subject string `json:"subject"`
	Topic   string `json:"topic"`

	Status Status `json:"status"`

	// AbilityEstimate is always within [ability.Min, ability.Max].
	AbilityEstimate float64 `json:"abilityEstimate"`
	InitialAbility  float64 `json:"initialAbility"`

	// QuestionsAnswered counts every submission, repeats included.
	QuestionsAnswered int `json:"questionsAnswered"`
	// TotalQuestions is the question budget, never above len(Available).
	TotalQuestions int `json:"totalQuestions"`

	// CurrentTopicScore and CurrentTopicQuestions exclude remedial questions.
	CurrentTopicScore     int     `json:"currentTopicScore"`
	CurrentTopicQuestions int     `json:"currentTopicQuestions"`
	TotalScore            float64 `json:"totalScore"`

	AnsweredQuestions  []int64                    `json:"answeredQuestions"`
	IncorrectQuestions []int64                    `json:"incorrectQuestions"`
	QuestionAttempts   map[int64]*QuestionAttempt `json:"questionAttempts"`
	RemedialQuestions  []int64                    `json:"remedialQuestions"`
	QuestionScores     []QuestionScore            `json:"questionScores"`

	ConsecutiveWrongAnswers int `json:"consecutiveWrongAnswers"`
	HintsUsed               int `json:"hintsUsed"`
	CurrentHintsUsed        int `json:"currentHintsUsed"`

	// CurrentQuestionID is the last served question (0 before the first).
	CurrentQuestionID int64 `json:"currentQuestionId"`
	// AwaitingAnswer is true while CurrentQuestionID has not been answered
	// since it was served.
	AwaitingAnswer bool `json:"awaitingAnswer"`

	TimeSpent float64   `json:"timeSpent"`
	StartTime time.Time `json:"startTime"`

	// Available is the fixed candidate pool for this attempt.
	Available []question.Question `json:"availableQuestions"`
	// WeakTopics holds "{year}-{subject}-{topic}" keys, worst first.
	WeakTopics []string `json:"weakTopics"`
}

// NewState creates an active session over pool. The budget is
// maxQuestions (DefaultMaxQuestions when not positive) capped at the pool
// size.
func NewState(id, userID, year, subject, topic string, initialAbility float64, pool []question.Question, weakTopics []string, maxQuestions int, now time.Time) *State {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	if weakTopics == nil {
		weakTopics = []string{}
	}
	return &State{
		ID:                 id,
		UserID:             userID,
		Year:               year,
		Subject:            subject,
		Topic:              topic,
		Status:             StatusActive,
		AbilityEstimate:    initialAbility,
		InitialAbility:     initialAbility,
		TotalQuestions:     min(maxQuestions, len(pool)),
		AnsweredQuestions:  []int64{},
		IncorrectQuestions: []int64{},
		QuestionAttempts:   make(map[int64]*QuestionAttempt),
		RemedialQuestions:  []int64{},
		QuestionScores:     []QuestionScore{},
		StartTime:          now,
		Available:          pool,
		WeakTopics:         weakTopics,
	}
}

// QuizID returns the topic key identifying this quiz.
func (s *State) QuizID() string {
	return store.TopicKey(s.Year, s.Subject, s.Topic)
}

// IsCompleted reports whether the session reached its terminal state.
func (s *State) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// BudgetExhausted reports whether no more questions may be served.
func (s *State) BudgetExhausted() bool {
	return s.QuestionsAnswered >= s.TotalQuestions
}

// Question resolves id against the candidate pool.
func (s *State) Question(id int64) *question.Question {
	for i := range s.Available {
		if s.Available[i].ID == id {
			return &s.Available[i]
		}
	}
	return nil
}

func (s *State) isAnswered(id int64) bool {
	return slices.Contains(s.AnsweredQuestions, id)
}

func (s *State) isIncorrect(id int64) bool {
	return slices.Contains(s.IncorrectQuestions, id)
}

func (s *State) isRemedial(id int64) bool {
	return slices.Contains(s.RemedialQuestions, id)
}

// isMastered reports whether id was answered and is not pending a repeat.
func (s *State) isMastered(id int64) bool {
	return s.isAnswered(id) && !s.isIncorrect(id)
}

func (s *State) attempt(id int64) *QuestionAttempt {
	a, ok := s.QuestionAttempts[id]
	if !ok {
		a = &QuestionAttempt{}
		s.QuestionAttempts[id] = a
	}
	return a
}

func (s *State) removeWeakTopic(key string) {
	s.WeakTopics = slices.DeleteFunc(s.WeakTopics, func(k string) bool { return k == key })
}

func (s *State) complete() {
	s.Status = StatusCompleted
	s.AwaitingAnswer = false
}

func appendUnique(ids []int64, id int64) []int64 {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func remove(ids []int64, id int64) []int64 {
	return slices.DeleteFunc(ids, func(v int64) bool { return v == id })
}
