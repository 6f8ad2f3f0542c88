package store

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/adaptiq/internal/question"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int   // max results (0 = unlimited)
	After int64 // sequence > After
}

// TopicKey formats the "{year}-{subject}-{topic}" key used for weak topics
// and quiz identifiers.
func TopicKey(year, subject, topic string) string {
	return fmt.Sprintf("%s-%s-%s", year, subject, topic)
}

// QuestionRepo manages the question pool.
type QuestionRepo interface {
	// Upsert inserts or replaces a question by id.
	Upsert(ctx context.Context, q *question.Question) error

	// Get returns the question, or nil if none exists.
	Get(ctx context.Context, id int64) (*question.Question, error)

	// ByTopic returns all questions for (year, subject, topic), ordered by id.
	ByTopic(ctx context.Context, year, subject, topic string) ([]question.Question, error)

	// Count returns the number of stored questions.
	Count(ctx context.Context) (int, error)
}

// WeaknessRecord is the durable weakness state of one user and topic.
type WeaknessRecord struct {
	UserID              string
	Year                string
	Subject             string
	Topic               string
	Score               float64
	Trend               string
	RemediationAttempts int
	UpdatedAt           time.Time
}

// Key returns the record's topic key.
func (w *WeaknessRecord) Key() string {
	return TopicKey(w.Year, w.Subject, w.Topic)
}

// WeaknessRepo persists weakness records.
type WeaknessRepo interface {
	// Get returns the record, or nil if none exists.
	Get(ctx context.Context, userID, year, subject, topic string) (*WeaknessRecord, error)

	// Upsert stores score and trend. A new record starts with one
	// remediation attempt; an existing record's counter is incremented.
	Upsert(ctx context.Context, rec *WeaknessRecord) error

	// ListByUser returns every record of the user, worst score first.
	ListByUser(ctx context.Context, userID string) ([]WeaknessRecord, error)
}

// AttemptRecord is the permanent record of a finished quiz attempt.
type AttemptRecord struct {
	ID                string
	UserID            string
	QuizID            string
	AttemptNumber     int
	Score             float64
	TimeTaken         float64 // seconds
	QuestionsAnswered int
	TotalQuestions    int
	AbilityEstimate   float64
	Passed            bool
	CreatedAt         time.Time
}

// ProgressMerge folds a newly created attempt into the previous progress
// row (nil for the first attempt) and returns the row to store.
type ProgressMerge func(prev *ProgressRecord, attempt *AttemptRecord) (*ProgressRecord, error)

// AttemptRepo persists attempt records.
type AttemptRepo interface {
	// Count returns the number of attempts a user made on a quiz.
	Count(ctx context.Context, userID, quizID string) (int, error)

	// Create stores a new attempt.
	Create(ctx context.Context, rec *AttemptRecord) error

	// Finalize stores rec with the next attempt number together with the
	// progress row returned by merge, in one transaction. If an attempt
	// with rec.ID already exists, rec is filled from it and nothing is
	// written, so a retried finalize records the attempt once.
	Finalize(ctx context.Context, rec *AttemptRecord, merge ProgressMerge) error

	// ListByUser returns the user's attempts, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]AttemptRecord, error)
}

// ProgressRecord is the aggregate progress of a user on one quiz.
type ProgressRecord struct {
	UserID        string
	QuizID        string
	Year          string
	Subject       string
	Topic         string
	Passed        bool
	LastScore     float64
	BestScore     float64
	TotalAttempts int
	LastActivity  time.Time
}

// ProgressRepo persists aggregate progress rows.
type ProgressRepo interface {
	// Get returns the progress row, or nil if none exists.
	Get(ctx context.Context, userID, quizID string) (*ProgressRecord, error)

	// Upsert replaces the progress row.
	Upsert(ctx context.Context, rec *ProgressRecord) error

	// ListByUser returns every progress row of the user.
	ListByUser(ctx context.Context, userID string) ([]ProgressRecord, error)
}

// SessionRecord is the storage representation of a quiz session. Data is
// opaque to the store.
type SessionRecord struct {
	ID        string
	UserID    string
	Completed bool
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SweepOpts selects sessions for cleanup. Zero times disable a rule.
type SweepOpts struct {
	// CompletedBefore removes completed sessions created before this time.
	CompletedBefore time.Time
	// IdleBefore removes incomplete sessions not updated since this time.
	IdleBefore time.Time
}

// SessionRepo is a keyed durable store for in-flight sessions.
type SessionRepo interface {
	// Save inserts or replaces the session.
	Save(ctx context.Context, rec *SessionRecord) error

	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (*SessionRecord, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Sweep removes sessions matching opts and returns how many were removed.
	Sweep(ctx context.Context, opts SweepOpts) (int, error)
}

// AnswerEventData captures a single answer submission.
type AnswerEventData struct {
	SessionID  string  `json:"sessionId"`
	UserID     string  `json:"userId"`
	QuestionID int64   `json:"questionId"`
	Correct    bool    `json:"isCorrect"`
	Points     float64 `json:"points"`
	TimeSpent  float64 `json:"timeSpent"`
	HintsUsed  int     `json:"hintsUsed"`
	Remedial   bool    `json:"isRemedial"`
}

// AnswerEvent is a stored AnswerEventData.
type AnswerEvent struct {
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	AnswerEventData
}

// HintEventData captures a single hint reveal.
type HintEventData struct {
	SessionID  string
	UserID     string
	QuestionID int64
	HintIndex  int
}

// EventRepo provides append access to audit events.
type EventRepo interface {
	// AppendAnswerEvent records an answer submission.
	AppendAnswerEvent(ctx context.Context, data AnswerEventData) error

	// AppendHintEvent records a hint reveal.
	AppendHintEvent(ctx context.Context, data HintEventData) error

	// AnswerEvents returns a session's answer events in sequence order.
	AnswerEvents(ctx context.Context, sessionID string, opts QueryOpts) ([]AnswerEvent, error)

	// HintCount returns the number of hints revealed in a session.
	HintCount(ctx context.Context, sessionID string) (int, error)
}
