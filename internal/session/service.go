package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/adaptiq/internal/ability"
	"github.com/abhisek/adaptiq/internal/event"
	"github.com/abhisek/adaptiq/internal/logger"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/scoring"
	"github.com/abhisek/adaptiq/internal/store"
	"github.com/abhisek/adaptiq/internal/weakness"
)

// Deps are the collaborators of a Service. Weakness, Events and Publisher
// are optional; Rand, Now and Logger have defaults.
type Deps struct {
	Questions store.QuestionRepo
	Progress  store.ProgressRepo
	Attempts  store.AttemptRepo
	Events    store.EventRepo
	Weakness  *weakness.Tracker
	Sessions  *Store
	Publisher event.Publisher
	Logger    *logger.Logger
	Rand      Rand
	Now       func() time.Time

	// MaxQuestions is the budget used when a start request names none.
	MaxQuestions int
}

// Service runs quiz attempts: start, next question, submit answer, hint
// and results. Each call loads the session, applies one transition and
// saves it back; concurrent calls on the same session are not serialized.
type Service struct {
	d   Deps
	log *logger.Logger
}

// NewService creates a Service, filling defaults for optional deps.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Rand == nil {
		d.Rand = globalRand{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MaxQuestions <= 0 {
		d.MaxQuestions = DefaultMaxQuestions
	}
	return &Service{d: d, log: d.Logger}
}

// StartRequest identifies the quiz to attempt.
type StartRequest struct {
	UserID       string `json:"userId"`
	Year         string `json:"year"`
	Subject      string `json:"subject"`
	Topic        string `json:"topic"`
	MaxQuestions int    `json:"maxQuestions"`
}

func (r StartRequest) validate() error {
	for _, f := range []struct{ name, val string }{
		{"userId", r.UserID}, {"year", r.Year}, {"subject", r.Subject}, {"topic", r.Topic},
	} {
		if strings.TrimSpace(f.val) == "" {
			return &ValidationError{Field: f.name, Err: errors.New("is required")}
		}
	}
	if r.MaxQuestions < 0 {
		return &ValidationError{Field: "maxQuestions", Err: errors.New("must not be negative")}
	}
	return nil
}

// StartResult describes a newly created session.
type StartResult struct {
	SessionID      string   `json:"sessionId"`
	InitialAbility float64  `json:"initialAbility"`
	WeakTopics     []string `json:"weakTopics"`
	TotalQuestions int      `json:"totalQuestions"`
}

// Start creates a session for the requested topic. The pool is the topic's
// questions plus those of the learner's weak topics.
func (svc *Service) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	quizID := store.TopicKey(req.Year, req.Subject, req.Topic)

	pool, err := svc.d.Questions.ByTopic(ctx, req.Year, req.Subject, req.Topic)
	if err != nil {
		return nil, &PersistenceError{Op: "load question pool", Err: err}
	}
	if len(pool) == 0 {
		return nil, &NotFoundError{Resource: "question pool", ID: quizID}
	}

	var weak []weakness.Topic
	if svc.d.Weakness != nil {
		// The quiz's own topic always counts toward the official score.
		weak, err = svc.d.Weakness.WeakTopics(ctx, req.UserID, quizID)
		if err != nil {
			return nil, &PersistenceError{Op: "load weak topics", Err: err}
		}
	}
	weakKeys := make([]string, 0, len(weak))
	for _, w := range weak {
		weakKeys = append(weakKeys, w.Key())
		extra, err := svc.d.Questions.ByTopic(ctx, w.Year, w.Subject, w.Topic)
		if err != nil {
			return nil, &PersistenceError{Op: "load weak topic questions", Err: err}
		}
		pool = mergePool(pool, extra)
	}

	history, err := svc.d.Progress.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, &PersistenceError{Op: "load progress history", Err: err}
	}
	initial := ability.Initial(historyFacts(history), req.Subject, req.Year)

	maxQ := req.MaxQuestions
	if maxQ == 0 {
		maxQ = svc.d.MaxQuestions
	}
	s := NewState(uuid.NewString(), req.UserID, req.Year, req.Subject, req.Topic,
		initial, pool, weakKeys, maxQ, svc.d.Now().UTC())
	if err := svc.d.Sessions.Save(ctx, s); err != nil {
		return nil, err
	}

	svc.log.Info("session started",
		"session_id", s.ID, "user_id", s.UserID, "quiz_id", quizID,
		"initial_ability", initial, "total_questions", s.TotalQuestions, "weak_topics", weakKeys)
	svc.publish(ctx, s, func(p event.Publisher) error {
		return p.PublishSessionStarted(ctx, event.NewSessionStartedEvent(
			s.ID, s.UserID, quizID, initial, s.TotalQuestions, weakKeys))
	})

	return &StartResult{
		SessionID:      s.ID,
		InitialAbility: initial,
		WeakTopics:     s.WeakTopics,
		TotalQuestions: s.TotalQuestions,
	}, nil
}

// NextResult is either the current question projection or completion.
type NextResult struct {
	Completed bool           `json:"completed"`
	Question  *question.View `json:"question,omitempty"`
	Phase     string         `json:"phase,omitempty"`
	Progress  Progress       `json:"progress"`
}

// NextQuestion serves the next question. While the served question is
// unanswered the same question is returned.
func (svc *Service) NextQuestion(ctx context.Context, sessionID string) (*NextResult, error) {
	s, err := svc.d.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.IsCompleted() {
		return &NextResult{Completed: true, Progress: progressOf(s, 0)}, nil
	}

	q, phase := Serve(s, svc.d.Rand)
	if err := svc.d.Sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	if q == nil {
		svc.log.Debug("session completed", "session_id", s.ID)
		return &NextResult{Completed: true, Progress: progressOf(s, 0)}, nil
	}

	view := q.Project()
	return &NextResult{
		Question: &view,
		Phase:    phase.String(),
		Progress: progressOf(s, 1),
	}, nil
}

// SubmitRequest is one answer submission.
type SubmitRequest struct {
	QuestionID int64           `json:"questionId"`
	Answer     question.Answer `json:"answer"`
	TimeSpent  float64         `json:"timeSpent"`
}

// SessionProgress summarizes session counters after a submission.
type SessionProgress struct {
	QuestionsAnswered      int     `json:"questionsAnswered"`
	TotalQuestions         int     `json:"totalQuestions"`
	TotalScore             float64 `json:"totalScore"`
	CurrentTopicPercentage float64 `json:"currentTopicPercentage"`
	ConsecutiveWrong       int     `json:"consecutiveWrongAnswers"`
	Completed              bool    `json:"isCompleted"`
}

// SubmitResult is the response to an answer submission.
type SubmitResult struct {
	IsCorrect       bool              `json:"isCorrect"`
	Scoring         scoring.Breakdown `json:"scoring"`
	Feedback        string            `json:"feedback"`
	AbilityEstimate float64           `json:"abilityEstimate"`
	IsRemedial      bool              `json:"isRemedial"`
	SessionProgress SessionProgress   `json:"sessionProgress"`
}

// SubmitAnswer scores an answer and updates ability and weakness. Weakness
// and audit writes are best-effort.
func (svc *Service) SubmitAnswer(ctx context.Context, sessionID string, req SubmitRequest) (*SubmitResult, error) {
	s, err := svc.d.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out, err := HandleAnswer(s, req.QuestionID, req.Answer, req.TimeSpent, svc.d.Now().UTC())
	if err != nil {
		return nil, err
	}
	log := svc.log.With("session_id", s.ID, "user_id", s.UserID, "question_id", out.Question.ID)

	svc.updateWeakness(ctx, log, s, out)

	if err := svc.d.Sessions.Save(ctx, s); err != nil {
		return nil, err
	}

	if svc.d.Events != nil {
		err := svc.d.Events.AppendAnswerEvent(ctx, store.AnswerEventData{
			SessionID:  s.ID,
			UserID:     s.UserID,
			QuestionID: out.Question.ID,
			Correct:    out.Correct,
			Points:     out.Score.TotalPoints,
			TimeSpent:  req.TimeSpent,
			HintsUsed:  out.HintsUsed,
			Remedial:   out.Remedial,
		})
		if err != nil {
			log.Warn("answer event not recorded", "error", err)
		}
	}
	svc.publish(ctx, s, func(p event.Publisher) error {
		return p.PublishAnswerSubmitted(ctx, event.NewAnswerSubmittedEvent(
			s.ID, s.UserID, out.Question.ID, out.Correct, out.Score.TotalPoints, out.Remedial, out.AbilityEstimate))
	})

	log.Debug("answer recorded", "correct", out.Correct, "points", out.Score.TotalPoints,
		"ability", out.AbilityEstimate, "completed", out.Completed)

	return &SubmitResult{
		IsCorrect:       out.Correct,
		Scoring:         out.Score,
		Feedback:        out.Feedback,
		AbilityEstimate: out.AbilityEstimate,
		IsRemedial:      out.Remedial,
		SessionProgress: SessionProgress{
			QuestionsAnswered:      s.QuestionsAnswered,
			TotalQuestions:         s.TotalQuestions,
			TotalScore:             s.TotalScore,
			CurrentTopicPercentage: s.TopicPercentage(),
			ConsecutiveWrong:       s.ConsecutiveWrongAnswers,
			Completed:              s.IsCompleted(),
		},
	}, nil
}

// updateWeakness applies the answer to the durable weakness record and
// drops the topic from the session's weak list once it recovers. Failures
// are logged and never fail the submission.
func (svc *Service) updateWeakness(ctx context.Context, log *logger.Logger, s *State, out *AnswerOutcome) {
	if svc.d.Weakness == nil || out.Question.Topic == "" {
		return
	}
	topic := weakness.Topic{Year: out.Question.Year, Subject: out.Question.Subject, Topic: out.Question.Topic}
	if topic.Year == "" {
		topic.Year = s.Year
	}
	if topic.Subject == "" {
		topic.Subject = s.Subject
	}

	score, err := svc.d.Weakness.Update(ctx, s.UserID, topic, out.Correct, out.Repeated)
	if err != nil {
		log.Warn("weakness update failed", "topic", topic.Key(), "error", err)
		return
	}
	if !weakness.IsWeak(score) && slices.Contains(s.WeakTopics, topic.Key()) {
		s.removeWeakTopic(topic.Key())
		log.Info("topic no longer weak", "topic", topic.Key(), "score", score)
	}
}

// RequestHint reveals the next hint of the current question.
func (svc *Service) RequestHint(ctx context.Context, sessionID string) (*HintReveal, error) {
	s, err := svc.d.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	reveal, err := RevealHint(s)
	if err != nil {
		return nil, err
	}
	if err := svc.d.Sessions.Save(ctx, s); err != nil {
		return nil, err
	}

	if svc.d.Events != nil {
		err := svc.d.Events.AppendHintEvent(ctx, store.HintEventData{
			SessionID:  s.ID,
			UserID:     s.UserID,
			QuestionID: reveal.QuestionID,
			HintIndex:  reveal.HintIndex,
		})
		if err != nil {
			svc.log.Warn("hint event not recorded", "session_id", s.ID, "error", err)
		}
	}
	svc.publish(ctx, s, func(p event.Publisher) error {
		return p.PublishHintRevealed(ctx, event.NewHintRevealedEvent(s.ID, s.UserID, reveal.QuestionID, reveal.HintIndex))
	})
	return reveal, nil
}

// Results finalizes the session: it records the attempt and updates the
// aggregate progress in one transaction, then removes the session. A
// second call reports the session as not found. If the attempt cannot be
// saved the session is kept and a PersistenceError is returned.
func (svc *Service) Results(ctx context.Context, sessionID string) (*Results, error) {
	s, err := svc.d.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	r := BuildResults(s)
	now := svc.d.Now().UTC()

	// The attempt is keyed by the session id, so a retry after a failed
	// delete or a failed commit records it once.
	rec := attemptRecord(s, r, now)
	err = svc.d.Attempts.Finalize(ctx, rec, func(prev *store.ProgressRecord, _ *store.AttemptRecord) (*store.ProgressRecord, error) {
		return MergeProgress(prev, s, r, now), nil
	})
	if err != nil {
		return nil, &PersistenceError{Op: "save attempt", Err: err}
	}
	r.AttemptNumber = rec.AttemptNumber

	if err := svc.d.Sessions.Delete(ctx, s.ID); err != nil {
		// The attempt is already recorded; a stale session is swept later.
		svc.log.Error("session not deleted after results", "session_id", s.ID, "error", err)
	}

	svc.log.Info("attempt completed",
		"session_id", s.ID, "user_id", s.UserID, "quiz_id", r.QuizID,
		"attempt", r.AttemptNumber, "percentage", r.CurrentTopicPercentage, "passed", r.QuizPassed)
	svc.publish(ctx, s, func(p event.Publisher) error {
		return p.PublishAttemptCompleted(ctx, event.NewAttemptCompletedEvent(
			s.ID, s.UserID, r.QuizID, r.AttemptNumber, r.CurrentTopicPercentage, r.QuizPassed, r.TotalScore, r.AbilityEstimate))
	})
	return r, nil
}

// StatusResult is a read-only projection of a session.
type StatusResult struct {
	SessionID              string         `json:"sessionId"`
	Status                 Status         `json:"status"`
	Progress               Progress       `json:"progress"`
	TotalScore             float64        `json:"totalScore"`
	CurrentTopicPercentage float64        `json:"currentTopicPercentage"`
	HintsUsed              int            `json:"hintsUsed"`
	TimeSpent              float64        `json:"timeSpent"`
	WeakTopics             []string       `json:"weakTopics"`
	CurrentQuestion        *question.View `json:"currentQuestion,omitempty"`
}

// Status returns the session's progress without changing it.
func (svc *Service) Status(ctx context.Context, sessionID string) (*StatusResult, error) {
	s, err := svc.d.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	res := &StatusResult{
		SessionID:              s.ID,
		Status:                 s.Status,
		Progress:               progressOf(s, 0),
		TotalScore:             s.TotalScore,
		CurrentTopicPercentage: s.TopicPercentage(),
		HintsUsed:              s.HintsUsed,
		TimeSpent:              s.TimeSpent,
		WeakTopics:             s.WeakTopics,
	}
	if s.AwaitingAnswer {
		if q := s.Question(s.CurrentQuestionID); q != nil {
			view := q.Project()
			res.CurrentQuestion = &view
		}
	}
	return res, nil
}

// AuditResult is the recorded answer and hint history of a session. It
// outlives the session itself.
type AuditResult struct {
	SessionID     string              `json:"sessionId"`
	Answers       []store.AnswerEvent `json:"answers"`
	HintsRevealed int                 `json:"hintsRevealed"`
}

// Audit returns the audit trail of a session, answers in sequence order.
// A session with no recorded events is reported as not found.
func (svc *Service) Audit(ctx context.Context, sessionID string, opts store.QueryOpts) (*AuditResult, error) {
	if svc.d.Events == nil {
		return nil, &NotFoundError{Resource: "audit trail", ID: sessionID}
	}
	answers, err := svc.d.Events.AnswerEvents(ctx, sessionID, opts)
	if err != nil {
		return nil, &PersistenceError{Op: "load answer events", Err: err}
	}
	hints, err := svc.d.Events.HintCount(ctx, sessionID)
	if err != nil {
		return nil, &PersistenceError{Op: "count hint events", Err: err}
	}
	if len(answers) == 0 && hints == 0 && opts.After == 0 {
		return nil, &NotFoundError{Resource: "audit trail", ID: sessionID}
	}
	if answers == nil {
		answers = []store.AnswerEvent{}
	}
	return &AuditResult{SessionID: sessionID, Answers: answers, HintsRevealed: hints}, nil
}

// Sweep deletes completed sessions older than retention and, when
// abandonedTTL is positive, incomplete sessions idle for longer than it.
func (svc *Service) Sweep(ctx context.Context, retention, abandonedTTL time.Duration) (int, error) {
	now := svc.d.Now()
	opts := store.SweepOpts{}
	if retention > 0 {
		opts.CompletedBefore = now.Add(-retention)
	}
	if abandonedTTL > 0 {
		opts.IdleBefore = now.Add(-abandonedTTL)
	}
	n, err := svc.d.Sessions.Sweep(ctx, opts)
	if err != nil {
		return n, err
	}
	svc.log.Info("sessions swept", "removed", n)
	return n, nil
}

// publish sends an event best-effort.
func (svc *Service) publish(ctx context.Context, s *State, fn func(event.Publisher) error) {
	if svc.d.Publisher == nil {
		return
	}
	if err := fn(svc.d.Publisher); err != nil {
		svc.log.Warn("event not published", "session_id", s.ID, "error", err)
	}
}

func progressOf(s *State, offset int) Progress {
	return Progress{
		Current:         min(s.QuestionsAnswered+offset, s.TotalQuestions),
		Total:           s.TotalQuestions,
		AbilityEstimate: s.AbilityEstimate,
	}
}

func historyFacts(rows []store.ProgressRecord) []ability.Progress {
	out := make([]ability.Progress, 0, len(rows))
	for _, r := range rows {
		out = append(out, ability.Progress{
			Year:          r.Year,
			Subject:       r.Subject,
			Topic:         r.Topic,
			TopicProgress: r.LastScore,
			Passed:        r.Passed,
		})
	}
	return out
}

// mergePool appends the questions of extra whose ids are not yet in pool.
func mergePool(pool, extra []question.Question) []question.Question {
	seen := make(map[int64]bool, len(pool))
	for _, q := range pool {
		seen[q.ID] = true
	}
	for _, q := range extra {
		if !seen[q.ID] {
			seen[q.ID] = true
			pool = append(pool, q)
		}
	}
	return pool
}
