// Package simulate drives a scripted learner through a quiz attempt. It is
// used to exercise a configured store end to end and to eyeball how
// selection and remediation behave for a given accuracy.
package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/session"
	"github.com/abhisek/adaptiq/internal/store"
)

// Options configures a simulated attempt.
type Options struct {
	UserID       string
	Year         string
	Subject      string
	Topic        string
	MaxQuestions int

	// Accuracy is the probability of answering a question correctly.
	Accuracy float64

	// HintRate is the probability of asking for a hint once one unlocks.
	HintRate float64

	// TimeSpent is the simulated seconds per answer.
	TimeSpent float64

	Seed uint64
}

// Step records one simulated submission.
type Step struct {
	QuestionID int64
	Phase      string
	Correct    bool
	Points     float64
	Remedial   bool
	HintShown  bool
}

// Outcome is a finished simulated attempt.
type Outcome struct {
	Steps   []Step
	Results *session.Results
}

// Learner answers questions with a fixed accuracy.
type Learner struct {
	rng      *rand.Rand
	accuracy float64
	hintRate float64
}

func NewLearner(seed uint64, accuracy, hintRate float64) *Learner {
	return &Learner{
		rng:      rand.New(rand.NewPCG(seed, seed+1)),
		accuracy: accuracy,
		hintRate: hintRate,
	}
}

// Answer picks the correct options with the learner's accuracy, and a
// wrong option otherwise.
func (l *Learner) Answer(q *question.Question) question.Answer {
	if l.rng.Float64() < l.accuracy {
		if q.IsMultiAnswer() {
			return question.Multiple(q.CorrectIDs...)
		}
		return question.Single(q.CorrectIDs[0])
	}

	var wrong []string
	for _, o := range q.Options {
		if !slices.Contains(q.CorrectIDs, o.ID) {
			wrong = append(wrong, o.ID)
		}
	}
	if len(wrong) == 0 {
		// Every option is correct; an incomplete selection is still wrong.
		return question.Multiple(q.CorrectIDs[0])
	}
	pick := wrong[l.rng.IntN(len(wrong))]
	if q.IsMultiAnswer() {
		return question.Multiple(pick)
	}
	return question.Single(pick)
}

// WantsHint reports whether the learner asks for a hint.
func (l *Learner) WantsHint() bool {
	return l.rng.Float64() < l.hintRate
}

// Run starts a session, answers until it completes and finalizes it.
// Served questions are looked up in questions to decide answers, since the
// service never reveals correct answers.
func Run(ctx context.Context, svc *session.Service, questions store.QuestionRepo, opts Options) (*Outcome, error) {
	start, err := svc.Start(ctx, session.StartRequest{
		UserID:       opts.UserID,
		Year:         opts.Year,
		Subject:      opts.Subject,
		Topic:        opts.Topic,
		MaxQuestions: opts.MaxQuestions,
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	l := NewLearner(opts.Seed, opts.Accuracy, opts.HintRate)
	out := &Outcome{}
	for {
		next, err := svc.NextQuestion(ctx, start.SessionID)
		if err != nil {
			return nil, fmt.Errorf("next question: %w", err)
		}
		if next.Completed {
			break
		}
		q, err := questions.Get(ctx, next.Question.ID)
		if err != nil {
			return nil, fmt.Errorf("load question %d: %w", next.Question.ID, err)
		}
		if q == nil {
			return nil, fmt.Errorf("question %d served but not stored", next.Question.ID)
		}

		step := Step{QuestionID: q.ID, Phase: next.Phase}
		if l.WantsHint() {
			_, err := svc.RequestHint(ctx, start.SessionID)
			switch {
			case err == nil:
				step.HintShown = true
			case !session.IsStateConflict(err):
				return nil, fmt.Errorf("request hint: %w", err)
			}
		}

		res, err := svc.SubmitAnswer(ctx, start.SessionID, session.SubmitRequest{
			QuestionID: q.ID,
			Answer:     l.Answer(q),
			TimeSpent:  opts.TimeSpent,
		})
		if err != nil {
			return nil, fmt.Errorf("submit answer: %w", err)
		}
		step.Correct = res.IsCorrect
		step.Points = res.Scoring.TotalPoints
		step.Remedial = res.IsRemedial
		out.Steps = append(out.Steps, step)

		if res.SessionProgress.Completed {
			break
		}
	}

	out.Results, err = svc.Results(ctx, start.SessionID)
	if err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}
	return out, nil
}
