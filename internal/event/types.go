package event

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeSessionStarted   EventType = "quiz.session.started"
	EventTypeAnswerSubmitted  EventType = "quiz.answer.submitted"
	EventTypeHintRevealed     EventType = "quiz.hint.revealed"
	EventTypeAttemptCompleted EventType = "quiz.attempt.completed"
)

const eventVersion = "1.0"

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().Unix(),
		Version:   eventVersion,
	}
}

type SessionStartedEvent struct {
	BaseEvent
	SessionID      string   `json:"session_id"`
	UserID         string   `json:"user_id"`
	QuizID         string   `json:"quiz_id"`
	InitialAbility float64  `json:"initial_ability"`
	TotalQuestions int      `json:"total_questions"`
	WeakTopics     []string `json:"weak_topics"`
}

type AnswerSubmittedEvent struct {
	BaseEvent
	SessionID       string  `json:"session_id"`
	UserID          string  `json:"user_id"`
	QuestionID      int64   `json:"question_id"`
	Correct         bool    `json:"correct"`
	Points          float64 `json:"points"`
	Remedial        bool    `json:"remedial"`
	AbilityEstimate float64 `json:"ability_estimate"`
}

type HintRevealedEvent struct {
	BaseEvent
	SessionID  string `json:"session_id"`
	UserID     string `json:"user_id"`
	QuestionID int64  `json:"question_id"`
	HintIndex  int    `json:"hint_index"`
}

type AttemptCompletedEvent struct {
	BaseEvent
	SessionID       string  `json:"session_id"`
	UserID          string  `json:"user_id"`
	QuizID          string  `json:"quiz_id"`
	AttemptNumber   int     `json:"attempt_number"`
	Percentage      float64 `json:"percentage"`
	Passed          bool    `json:"passed"`
	TotalScore      float64 `json:"total_score"`
	AbilityEstimate float64 `json:"ability_estimate"`
}

func NewSessionStartedEvent(sessionID, userID, quizID string, ability float64, total int, weakTopics []string) *SessionStartedEvent {
	return &SessionStartedEvent{
		BaseEvent:      newBase(EventTypeSessionStarted),
		SessionID:      sessionID,
		UserID:         userID,
		QuizID:         quizID,
		InitialAbility: ability,
		TotalQuestions: total,
		WeakTopics:     weakTopics,
	}
}

func NewAnswerSubmittedEvent(sessionID, userID string, questionID int64, correct bool, points float64, remedial bool, ability float64) *AnswerSubmittedEvent {
	return &AnswerSubmittedEvent{
		BaseEvent:       newBase(EventTypeAnswerSubmitted),
		SessionID:       sessionID,
		UserID:          userID,
		QuestionID:      questionID,
		Correct:         correct,
		Points:          points,
		Remedial:        remedial,
		AbilityEstimate: ability,
	}
}

func NewHintRevealedEvent(sessionID, userID string, questionID int64, hintIndex int) *HintRevealedEvent {
	return &HintRevealedEvent{
		BaseEvent:  newBase(EventTypeHintRevealed),
		SessionID:  sessionID,
		UserID:     userID,
		QuestionID: questionID,
		HintIndex:  hintIndex,
	}
}

func NewAttemptCompletedEvent(sessionID, userID, quizID string, attempt int, pct float64, passed bool, total, ability float64) *AttemptCompletedEvent {
	return &AttemptCompletedEvent{
		BaseEvent:       newBase(EventTypeAttemptCompleted),
		SessionID:       sessionID,
		UserID:          userID,
		QuizID:          quizID,
		AttemptNumber:   attempt,
		Percentage:      pct,
		Passed:          passed,
		TotalScore:      total,
		AbilityEstimate: ability,
	}
}
