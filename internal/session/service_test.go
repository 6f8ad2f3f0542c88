package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptiq/internal/event"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/store"
	"github.com/abhisek/adaptiq/internal/weakness"
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.EventType
}

func (p *recordingPublisher) add(t event.EventType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, t)
	return nil
}

func (p *recordingPublisher) PublishSessionStarted(_ context.Context, e *event.SessionStartedEvent) error {
	return p.add(e.Type)
}

func (p *recordingPublisher) PublishAnswerSubmitted(_ context.Context, e *event.AnswerSubmittedEvent) error {
	return p.add(e.Type)
}

func (p *recordingPublisher) PublishHintRevealed(_ context.Context, e *event.HintRevealedEvent) error {
	return p.add(e.Type)
}

func (p *recordingPublisher) PublishAttemptCompleted(_ context.Context, e *event.AttemptCompletedEvent) error {
	return p.add(e.Type)
}

func (p *recordingPublisher) Close() error { return nil }

// failingAttempts fails every Finalize.
type failingAttempts struct {
	store.AttemptRepo
}

func (failingAttempts) Finalize(context.Context, *store.AttemptRecord, store.ProgressMerge) error {
	return errors.New("disk full")
}

// flakyProgress fails the progress write of the first Finalize, after the
// attempt row was inserted in the same transaction.
type flakyProgress struct {
	store.AttemptRepo
	failed bool
}

func (f *flakyProgress) Finalize(ctx context.Context, rec *store.AttemptRecord, merge store.ProgressMerge) error {
	if f.failed {
		return f.AttemptRepo.Finalize(ctx, rec, merge)
	}
	f.failed = true
	return f.AttemptRepo.Finalize(ctx, rec, func(*store.ProgressRecord, *store.AttemptRecord) (*store.ProgressRecord, error) {
		return nil, errors.New("progress write failed")
	})
}

// failingDelete keeps sessions on Delete.
type failingDelete struct {
	store.SessionRepo
}

func (failingDelete) Delete(context.Context, string) error {
	return errors.New("connection reset")
}

// failingWeakness fails every Upsert.
type failingWeakness struct {
	store.WeaknessRepo
}

func (failingWeakness) Upsert(context.Context, *store.WeaknessRecord) error {
	return errors.New("weakness table locked")
}

type testEnv struct {
	st  *store.Store
	svc *Service
	pub *recordingPublisher
	now time.Time
}

func newTestEnv(t *testing.T, qs ...question.Question) *testEnv {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	st, err := store.Open(ctx, store.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	for i := range qs {
		require.NoError(t, st.QuestionRepo().Upsert(ctx, &qs[i]))
	}

	env := &testEnv{st: st, pub: &recordingPublisher{}, now: testNow}
	env.svc = NewService(Deps{
		Questions: st.QuestionRepo(),
		Progress:  st.ProgressRepo(),
		Attempts:  st.AttemptRepo(),
		Events:    st.EventRepo(),
		Weakness:  weakness.NewTracker(st.WeaknessRepo()),
		Sessions:  NewStore(st.SessionRepo()),
		Publisher: env.pub,
		Rand:      seeded(7),
		Now:       func() time.Time { return env.now },
	})
	return env
}

func startFractions(t *testing.T, svc *Service, maxQuestions int) *StartResult {
	t.Helper()
	res, err := svc.Start(context.Background(), StartRequest{
		UserID: "u1", Year: "7", Subject: "math", Topic: "fractions", MaxQuestions: maxQuestions,
	})
	require.NoError(t, err)
	return res
}

func TestService_FullAttemptAllCorrect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pool(1, 5, "fractions")...)

	start := startFractions(t, env.svc, 5)
	assert.Equal(t, 5, start.TotalQuestions)
	assert.InDelta(t, 0.5, start.InitialAbility, 1e-9)
	assert.Empty(t, start.WeakTopics)

	served := map[int64]bool{}
	var last *SubmitResult
	for i := 0; i < 5; i++ {
		next, err := env.svc.NextQuestion(ctx, start.SessionID)
		require.NoError(t, err)
		require.False(t, next.Completed, "completed early at %d", i)
		require.NotNil(t, next.Question)
		assert.False(t, served[next.Question.ID], "question %d served twice", next.Question.ID)
		served[next.Question.ID] = true
		assert.Equal(t, i+1, next.Progress.Current)

		last, err = env.svc.SubmitAnswer(ctx, start.SessionID, SubmitRequest{
			QuestionID: next.Question.ID,
			Answer:     question.Single("a"),
			TimeSpent:  10,
		})
		require.NoError(t, err)
		assert.True(t, last.IsCorrect)
		assert.Equal(t, i == 4, last.SessionProgress.Completed)
	}
	assert.Equal(t, 5, last.SessionProgress.QuestionsAnswered)

	next, err := env.svc.NextQuestion(ctx, start.SessionID)
	require.NoError(t, err)
	assert.True(t, next.Completed)

	res, err := env.svc.Results(ctx, start.SessionID)
	require.NoError(t, err)
	assert.True(t, res.QuizPassed)
	assert.Equal(t, 100.0, res.CurrentTopicPercentage)
	assert.Equal(t, 1, res.AttemptNumber)
	assert.Equal(t, 5, res.QuestionsAnswered)
	assert.InDelta(t, 75, res.TotalScore, 1e-9) // 5 x (10 + 5)

	n, err := env.st.AttemptRepo().Count(ctx, "u1", "7-math-fractions")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	prog, err := env.st.ProgressRepo().Get(ctx, "u1", "7-math-fractions")
	require.NoError(t, err)
	require.NotNil(t, prog)
	assert.True(t, prog.Passed)
	assert.Equal(t, 1, prog.TotalAttempts)

	events, err := env.st.EventRepo().AnswerEvents(ctx, start.SessionID, store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, events, 5)

	_, err = env.svc.Results(ctx, start.SessionID)
	assert.True(t, IsNotFound(err), "second Results: %v", err)

	assert.Equal(t, []event.EventType{
		event.EventTypeSessionStarted,
		event.EventTypeAnswerSubmitted, event.EventTypeAnswerSubmitted, event.EventTypeAnswerSubmitted,
		event.EventTypeAnswerSubmitted, event.EventTypeAnswerSubmitted,
		event.EventTypeAttemptCompleted,
	}, env.pub.events)
}

func TestService_StartValidation(t *testing.T) {
	env := newTestEnv(t, pool(1, 3, "fractions")...)
	tests := []struct {
		name  string
		req   StartRequest
		field string
	}{
		{"missing user", StartRequest{Year: "7", Subject: "math", Topic: "fractions"}, "userId"},
		{"blank topic", StartRequest{UserID: "u1", Year: "7", Subject: "math", Topic: "  "}, "topic"},
		{"negative budget", StartRequest{UserID: "u1", Year: "7", Subject: "math", Topic: "fractions", MaxQuestions: -1}, "maxQuestions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Start(context.Background(), tt.req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestService_StartEmptyPool(t *testing.T) {
	env := newTestEnv(t, pool(1, 3, "fractions")...)
	_, err := env.svc.Start(context.Background(), StartRequest{
		UserID: "u1", Year: "7", Subject: "math", Topic: "geometry",
	})
	assert.True(t, IsNotFound(err), "err = %v", err)
}

func TestService_UnknownSession(t *testing.T) {
	env := newTestEnv(t, pool(1, 3, "fractions")...)
	ctx := context.Background()

	_, err := env.svc.NextQuestion(ctx, "missing")
	assert.True(t, IsNotFound(err))
	_, err = env.svc.SubmitAnswer(ctx, "missing", SubmitRequest{QuestionID: 1, Answer: question.Single("a")})
	assert.True(t, IsNotFound(err))
	_, err = env.svc.RequestHint(ctx, "missing")
	assert.True(t, IsNotFound(err))
	_, err = env.svc.Results(ctx, "missing")
	assert.True(t, IsNotFound(err))
	_, err = env.svc.Status(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestService_NextQuestionIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pool(1, 5, "fractions")...)
	start := startFractions(t, env.svc, 3)

	first, err := env.svc.NextQuestion(ctx, start.SessionID)
	require.NoError(t, err)
	again, err := env.svc.NextQuestion(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, first.Question.ID, again.Question.ID)

	status, err := env.svc.Status(ctx, start.SessionID)
	require.NoError(t, err)
	require.NotNil(t, status.CurrentQuestion)
	assert.Equal(t, first.Question.ID, status.CurrentQuestion.ID)
	assert.Equal(t, StatusActive, status.Status)
	assert.Equal(t, 0, status.Progress.Current)
}

func TestService_SubmitErrorsLeaveSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pool(1, 5, "fractions")...)
	start := startFractions(t, env.svc, 3)

	next, err := env.svc.NextQuestion(ctx, start.SessionID)
	require.NoError(t, err)
	qid := next.Question.ID

	_, err = env.svc.SubmitAnswer(ctx, start.SessionID, SubmitRequest{QuestionID: qid, Answer: question.Single("a"), TimeSpent: 301})
	assert.True(t, IsValidation(err))
	_, err = env.svc.SubmitAnswer(ctx, start.SessionID, SubmitRequest{QuestionID: 999, Answer: question.Single("a"), TimeSpent: 1})
	assert.True(t, IsNotFound(err))

	_, err = env.svc.SubmitAnswer(ctx, start.SessionID, SubmitRequest{QuestionID: qid, Answer: question.Single("a"), TimeSpent: 1})
	require.NoError(t, err)
	_, err = env.svc.SubmitAnswer(ctx, start.SessionID, SubmitRequest{QuestionID: qid, Answer: question.Single("a"), TimeSpent: 1})
	assert.True(t, IsStateConflict(err))

	status, err := env.svc.Status(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Progress.Current)
}

func TestService_HintFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pool(1, 5, "fractions")...)
	start := startFractions(t, env.svc, 5)

	next, err := env.svc.NextQuestion(ctx, start.SessionID)
	require.NoError(t, err)
	qid := next.Question.ID

	_, err = env.svc.RequestHint(ctx, start.SessionID)
	assert.ErrorIs(t, err, ErrHintLocked)

	// Three misses unlock hints while ability stays in [0.3, 0.6).
	for i := 0; i < 3; i++ {
		_, err := env.svc.SubmitAnswer(ctx, start.SessionID, SubmitRequest{QuestionID: qid, Answer: question.Single("b"), TimeSpent: 5})
		require.NoError(t, err)
	}

	reveal, err := env.svc.RequestHint(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "first hint", reveal.Hint)
	assert.Equal(t, qid, reveal.QuestionID)

	n, err := env.st.EventRepo().HintCount(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status, err := env.svc.Status(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.HintsUsed)
	assert.Contains(t, env.pub.events, event.EventTypeHintRevealed)
}

func TestService_WeakTopicsJoinPool(t *testing.T) {
	ctx := context.Background()
	qs := pool(1, 5, "fractions")
	qs = append(qs, pool(101, 3, "decimals")...)
	env := newTestEnv(t, qs...)

	require.NoError(t, env.st.WeaknessRepo().Upsert(ctx, &store.WeaknessRecord{
		UserID: "u1", Year: "7", Subject: "math", Topic: "decimals",
		Score: 0.6, Trend: string(weakness.TrendDeclining), UpdatedAt: testNow,
	}))

	start := startFractions(t, env.svc, 5)
	assert.Equal(t, []string{"7-math-decimals"}, start.WeakTopics)

	s, err := env.svc.d.Sessions.Load(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Len(t, s.Available, 8)

	// Submitting a decimals question directly updates its weakness record.
	_, err = env.svc.SubmitAnswer(ctx, start.SessionID, SubmitRequest{QuestionID: 101, Answer: question.Single("b"), TimeSpent: 5})
	require.NoError(t, err)
	rec, err := env.st.WeaknessRepo().Get(ctx, "u1", "7", "math", "decimals")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.InDelta(t, 0.65, rec.Score, 1e-9)
	assert.Equal(t, 2, rec.RemediationAttempts)
}

func TestService_WeakTopicDroppedWhenRecovered(t *testing.T) {
	ctx := context.Background()
	qs := pool(1, 5, "fractions")
	qs = append(qs, pool(101, 3, "decimals")...)
	env := newTestEnv(t, qs...)

	require.NoError(t, env.st.WeaknessRepo().Upsert(ctx, &store.WeaknessRecord{
		UserID: "u1", Year: "7", Subject: "math", Topic: "decimals", Score: 0.31, UpdatedAt: testNow,
	}))
	start := startFractions(t, env.svc, 5)
	require.Equal(t, []string{"7-math-decimals"}, start.WeakTopics)

	_, err := env.svc.SubmitAnswer(ctx, start.SessionID, SubmitRequest{QuestionID: 101, Answer: question.Single("a"), TimeSpent: 5})
	require.NoError(t, err)

	status, err := env.svc.Status(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Empty(t, status.WeakTopics)
}

func TestService_ResultsPersistenceFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pool(1, 3, "fractions")...)
	env.svc.d.Attempts = failingAttempts{AttemptRepo: env.st.AttemptRepo()}

	start := startFractions(t, env.svc, 3)
	_, err := env.svc.Results(ctx, start.SessionID)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)

	_, err = env.svc.Status(ctx, start.SessionID)
	assert.NoError(t, err, "session must survive a failed results call")
}

func TestService_ResultsRetryRecordsOneAttempt(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pool(1, 3, "fractions")...)
	env.svc.d.Attempts = &flakyProgress{AttemptRepo: env.st.AttemptRepo()}

	start := startFractions(t, env.svc, 3)
	_, err := env.svc.Results(ctx, start.SessionID)
	require.True(t, IsPersistence(err), "err = %v", err)

	n, err := env.st.AttemptRepo().Count(ctx, "u1", "7-math-fractions")
	require.NoError(t, err)
	assert.Zero(t, n, "a failed progress write must roll back the attempt")

	res, err := env.svc.Results(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.AttemptNumber)

	n, err = env.st.AttemptRepo().Count(ctx, "u1", "7-math-fractions")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	prog, err := env.st.ProgressRepo().Get(ctx, "u1", "7-math-fractions")
	require.NoError(t, err)
	require.NotNil(t, prog)
	assert.Equal(t, 1, prog.TotalAttempts)
}

func TestService_ResultsAfterFailedDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pool(1, 3, "fractions")...)
	env.svc.d.Sessions = NewStore(failingDelete{SessionRepo: env.st.SessionRepo()})

	start := startFractions(t, env.svc, 3)
	first, err := env.svc.Results(ctx, start.SessionID)
	require.NoError(t, err)

	again, err := env.svc.Results(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, first.AttemptNumber, again.AttemptNumber)

	n, err := env.st.AttemptRepo().Count(ctx, "u1", "7-math-fractions")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	prog, err := env.st.ProgressRepo().Get(ctx, "u1", "7-math-fractions")
	require.NoError(t, err)
	assert.Equal(t, 1, prog.TotalAttempts)
}

func TestService_WeaknessFailureDoesNotFailSubmit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pool(1, 3, "fractions")...)
	env.svc.d.Weakness = weakness.NewTracker(failingWeakness{WeaknessRepo: env.st.WeaknessRepo()})

	start := startFractions(t, env.svc, 3)
	next, err := env.svc.NextQuestion(ctx, start.SessionID)
	require.NoError(t, err)

	res, err := env.svc.SubmitAnswer(ctx, start.SessionID, SubmitRequest{
		QuestionID: next.Question.ID, Answer: question.Single("a"), TimeSpent: 5,
	})
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 1, res.SessionProgress.QuestionsAnswered)

	status, err := env.svc.Status(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Progress.Current, "session must be saved despite the weakness failure")

	rec, err := env.st.WeaknessRepo().Get(ctx, "u1", "7", "math", "fractions")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestService_WeakTopicQuestionsStayOutOfOfficialScore(t *testing.T) {
	ctx := context.Background()
	qs := pool(1, 1, "fractions")
	qs = append(qs, pool(101, 4, "decimals")...)
	env := newTestEnv(t, qs...)

	require.NoError(t, env.st.WeaknessRepo().Upsert(ctx, &store.WeaknessRecord{
		UserID: "u1", Year: "7", Subject: "math", Topic: "decimals", Score: 0.9, UpdatedAt: testNow,
	}))
	start := startFractions(t, env.svc, 5)
	require.Equal(t, 5, start.TotalQuestions)

	servedOwn := false
	for {
		next, err := env.svc.NextQuestion(ctx, start.SessionID)
		require.NoError(t, err)
		if next.Completed {
			break
		}
		// Decimals are always missed; fractions are always right.
		ans := question.Single("b")
		if next.Question.Topic == "fractions" {
			ans = question.Single("a")
			servedOwn = true
		}
		res, err := env.svc.SubmitAnswer(ctx, start.SessionID, SubmitRequest{
			QuestionID: next.Question.ID, Answer: ans, TimeSpent: 5,
		})
		require.NoError(t, err)
		assert.Equal(t, next.Question.Topic != "fractions", res.IsRemedial, "question %d", next.Question.ID)
	}
	require.True(t, servedOwn, "the quiz's own question was never served")

	res, err := env.svc.Results(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.CurrentTopicPercentage)
	assert.True(t, res.QuizPassed)
	for _, sc := range res.QuestionScores {
		assert.Equal(t, sc.Topic == "decimals", sc.IsRemedial, "question %d", sc.QuestionID)
	}
}

func TestService_SecondAttemptNumbering(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pool(1, 3, "fractions")...)

	for want := 1; want <= 2; want++ {
		start := startFractions(t, env.svc, 3)
		res, err := env.svc.Results(ctx, start.SessionID)
		require.NoError(t, err)
		assert.Equal(t, want, res.AttemptNumber)
	}

	prog, err := env.st.ProgressRepo().Get(ctx, "u1", "7-math-fractions")
	require.NoError(t, err)
	assert.Equal(t, 2, prog.TotalAttempts)
	assert.False(t, prog.Passed)
}

func TestService_Sweep(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pool(1, 3, "fractions")...)
	// The session repo stamps updates with the wall clock.
	env.now = time.Now()
	start := startFractions(t, env.svc, 3)

	n, err := env.svc.Sweep(ctx, 0, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	env.now = env.now.Add(2 * time.Hour)
	n, err = env.svc.Sweep(ctx, 0, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = env.svc.Status(ctx, start.SessionID)
	assert.True(t, IsNotFound(err))
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	st := NewStore(env.st.SessionRepo())

	s := newTestState(pool(1, 3, "fractions"), []string{"7-math-decimals"}, 3)
	_, err := HandleAnswer(s, 2, question.Single("b"), 12, testNow)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, s))

	got, err := st.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.QuizID(), got.QuizID())
	assert.Equal(t, s.IncorrectQuestions, got.IncorrectQuestions)
	assert.Equal(t, s.WeakTopics, got.WeakTopics)
	assert.Equal(t, 1, got.QuestionAttempts[2].Attempts)
	assert.Len(t, got.Available, 3)
	assert.True(t, got.StartTime.Equal(s.StartTime))

	require.NoError(t, st.Delete(ctx, s.ID))
	_, err = st.Load(ctx, s.ID)
	assert.True(t, IsNotFound(err))
}

func TestService_AuditOutlivesSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, pool(1, 3, "fractions")...)
	start := startFractions(t, env.svc, 3)

	_, err := env.svc.Audit(ctx, start.SessionID, store.QueryOpts{})
	assert.True(t, IsNotFound(err), "err = %v", err)

	next, err := env.svc.NextQuestion(ctx, start.SessionID)
	require.NoError(t, err)
	_, err = env.svc.SubmitAnswer(ctx, start.SessionID, SubmitRequest{
		QuestionID: next.Question.ID, Answer: question.Single("b"), TimeSpent: 7,
	})
	require.NoError(t, err)
	_, err = env.svc.Results(ctx, start.SessionID)
	require.NoError(t, err)

	audit, err := env.svc.Audit(ctx, start.SessionID, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, audit.Answers, 1)
	assert.Equal(t, next.Question.ID, audit.Answers[0].QuestionID)
	assert.False(t, audit.Answers[0].Correct)
	assert.Zero(t, audit.HintsRevealed)
}
