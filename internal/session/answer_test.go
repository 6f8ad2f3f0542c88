package session

import (
	"errors"
	"math"
	"testing"

	"github.com/abhisek/adaptiq/internal/question"
)

func TestHandleAnswer_Validation(t *testing.T) {
	tests := []struct {
		name      string
		answer    question.Answer
		timeSpent float64
		field     string
	}{
		{"empty answer", question.Answer{}, 5, "answer"},
		{"blank id", question.Single(" "), 5, "answer"},
		{"blank id in array", question.Multiple("a", ""), 5, "answer"},
		{"negative time", question.Single("a"), -1, "timeSpent"},
		{"time over limit", question.Single("a"), 300.5, "timeSpent"},
		{"NaN time", question.Single("a"), math.NaN(), "timeSpent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestState(pool(1, 3, "fractions"), nil, 3)
			_, err := HandleAnswer(s, 1, tt.answer, tt.timeSpent, testNow)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if s.QuestionsAnswered != 0 || len(s.QuestionAttempts) != 0 {
				t.Error("state mutated on validation failure")
			}
		})
	}
}

func TestHandleAnswer_BoundaryTimesAccepted(t *testing.T) {
	s := newTestState(pool(1, 3, "fractions"), nil, 3)
	if _, err := HandleAnswer(s, 1, question.Single("a"), 0, testNow); err != nil {
		t.Errorf("timeSpent 0: %v", err)
	}
	if _, err := HandleAnswer(s, 2, question.Single("a"), 300, testNow); err != nil {
		t.Errorf("timeSpent 300: %v", err)
	}
}

func TestHandleAnswer_UnknownQuestion(t *testing.T) {
	s := newTestState(pool(1, 3, "fractions"), nil, 3)
	_, err := HandleAnswer(s, 42, question.Single("a"), 5, testNow)
	if !IsNotFound(err) {
		t.Errorf("err = %v, want NotFoundError", err)
	}
}

func TestHandleAnswer_AlreadyMastered(t *testing.T) {
	s := newTestState(pool(1, 3, "fractions"), nil, 3)
	if _, err := HandleAnswer(s, 1, question.Single("a"), 5, testNow); err != nil {
		t.Fatal(err)
	}
	before := s.QuestionsAnswered

	_, err := HandleAnswer(s, 1, question.Single("a"), 5, testNow)
	if !errors.Is(err, ErrAlreadyMastered) || !IsStateConflict(err) {
		t.Errorf("err = %v, want ErrAlreadyMastered conflict", err)
	}
	if s.QuestionsAnswered != before {
		t.Error("state mutated on conflict")
	}
}

func TestHandleAnswer_IncorrectThenRepeat(t *testing.T) {
	s := newTestState(pool(1, 3, "fractions"), nil, 3)

	out, err := HandleAnswer(s, 1, question.Single("b"), 5, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if out.Correct || out.Repeated {
		t.Errorf("outcome = %+v", out)
	}
	if len(s.IncorrectQuestions) != 1 || s.IncorrectQuestions[0] != 1 {
		t.Errorf("IncorrectQuestions = %v", s.IncorrectQuestions)
	}
	if s.ConsecutiveWrongAnswers != 1 {
		t.Errorf("ConsecutiveWrongAnswers = %d", s.ConsecutiveWrongAnswers)
	}

	out, err = HandleAnswer(s, 1, question.Single("a"), 5, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Correct || !out.Repeated {
		t.Errorf("outcome = %+v", out)
	}
	if len(s.IncorrectQuestions) != 0 {
		t.Errorf("IncorrectQuestions = %v, want empty", s.IncorrectQuestions)
	}
	if len(s.AnsweredQuestions) != 1 {
		t.Errorf("AnsweredQuestions = %v, want one entry", s.AnsweredQuestions)
	}
	if s.QuestionsAnswered != 2 {
		t.Errorf("QuestionsAnswered = %d, want 2", s.QuestionsAnswered)
	}
	if s.ConsecutiveWrongAnswers != 0 {
		t.Error("streak not reset on correct answer")
	}
	att := s.QuestionAttempts[1]
	if att.Attempts != 2 || att.Correct != 1 {
		t.Errorf("attempt = %+v", att)
	}
}

func TestHandleAnswer_ScoringAndAbility(t *testing.T) {
	qs := []question.Question{singleQ(1, "fractions", question.DifficultyHard)}
	s := newTestState(qs, nil, 1)
	s.CurrentQuestionID = 1
	s.AwaitingAnswer = true
	s.CurrentHintsUsed = 1

	out, err := HandleAnswer(s, 1, question.Single("a"), 20, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(out.Score.TotalPoints, 15) {
		t.Errorf("TotalPoints = %v, want 15", out.Score.TotalPoints)
	}
	if !almostEqual(s.TotalScore, 15) {
		t.Errorf("TotalScore = %v, want 15", s.TotalScore)
	}
	if s.AbilityEstimate <= 0.5 {
		t.Errorf("ability did not rise: %v", s.AbilityEstimate)
	}
	if s.AwaitingAnswer {
		t.Error("AwaitingAnswer should clear")
	}
	if !out.Completed || !s.IsCompleted() {
		t.Error("single-question session should complete")
	}
	if s.QuestionScores[0].HintsUsed != 1 {
		t.Errorf("score entry = %+v", s.QuestionScores[0])
	}
}

func TestHandleAnswer_TotalScoreFlooredAtZero(t *testing.T) {
	s := newTestState(pool(1, 3, "fractions"), nil, 3)
	s.CurrentQuestionID = 1
	s.CurrentHintsUsed = 2

	if _, err := HandleAnswer(s, 1, question.Single("b"), 5, testNow); err != nil {
		t.Fatal(err)
	}
	if s.TotalScore != 0 {
		t.Errorf("TotalScore = %v, want 0", s.TotalScore)
	}
	if s.QuestionScores[0].Points != -4 {
		t.Errorf("per-question points = %v, want -4", s.QuestionScores[0].Points)
	}
}

func TestHandleAnswer_PartialCreditInSession(t *testing.T) {
	q := singleQ(1, "fractions", question.DifficultyMedium)
	q.CorrectIDs = []string{"a", "b", "c"}
	s := newTestState([]question.Question{q}, nil, 1)

	out, err := HandleAnswer(s, 1, question.Multiple("a"), 5, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if out.Correct {
		t.Error("partial answer must be incorrect")
	}
	if !almostEqual(out.Score.PartialCredit, 3.33) || out.Score.BaseScore != out.Score.PartialCredit {
		t.Errorf("breakdown = %+v", out.Score)
	}
	if !almostEqual(s.TotalScore, 3.33) {
		t.Errorf("TotalScore = %v", s.TotalScore)
	}
}

func TestHandleAnswer_CompletedSession(t *testing.T) {
	s := newTestState(pool(1, 3, "fractions"), nil, 1)
	if _, err := HandleAnswer(s, 1, question.Single("a"), 5, testNow); err != nil {
		t.Fatal(err)
	}
	_, err := HandleAnswer(s, 2, question.Single("a"), 5, testNow)
	if !errors.Is(err, ErrSessionCompleted) {
		t.Errorf("err = %v, want ErrSessionCompleted", err)
	}
}

func TestHandleAnswer_RemedialExcludedFromPercentage(t *testing.T) {
	qs := pool(1, 7, "fractions")
	qs = append(qs, pool(101, 3, "decimals")...)
	s := newTestState(qs, []string{"7-math-decimals"}, 10)
	s.RemedialQuestions = []int64{101, 102, 103}

	for _, id := range []int64{101, 102, 103} {
		if _, err := HandleAnswer(s, id, question.Single("a"), 5, testNow); err != nil {
			t.Fatal(err)
		}
	}
	for id := int64(1); id <= 7; id++ {
		ans := question.Single("a")
		if id > 5 {
			ans = question.Single("b")
		}
		if _, err := HandleAnswer(s, id, ans, 5, testNow); err != nil {
			t.Fatal(err)
		}
	}

	if s.QuestionsAnswered != 10 {
		t.Fatalf("QuestionsAnswered = %d, want 10", s.QuestionsAnswered)
	}
	if s.CurrentTopicQuestions != 7 || s.CurrentTopicScore != 5 {
		t.Errorf("topic counters = %d/%d, want 5/7", s.CurrentTopicScore, s.CurrentTopicQuestions)
	}
	if got := s.TopicPercentage(); !almostEqual(got, 71.43) {
		t.Errorf("TopicPercentage = %v, want ~71.43", got)
	}
	remedial := 0
	for _, qs := range s.QuestionScores {
		if qs.IsRemedial {
			remedial++
		}
	}
	if remedial != 3 {
		t.Errorf("remedial score entries = %d, want 3", remedial)
	}
	if !s.IsCompleted() {
		t.Error("session should be completed")
	}
}

func TestFeedback(t *testing.T) {
	tests := []struct {
		correct    bool
		d          question.Difficulty
		withinTime bool
		streak     int
		want       string
	}{
		{true, question.DifficultyHard, true, 0, "Excellent! That was a hard one. Quick thinking earned you a time bonus."},
		{true, question.DifficultyEasy, false, 0, "Correct."},
		{true, question.DifficultyMedium, false, 0, "Well done!"},
		{false, question.DifficultyMedium, true, 1, "Not quite."},
		{false, question.DifficultyEasy, false, 3, "Not quite. Re-read the question carefully. Try breaking the problem into smaller steps. Consider reviewing this topic before moving on."},
	}
	for _, tt := range tests {
		if got := Feedback(tt.correct, tt.d, tt.withinTime, tt.streak); got != tt.want {
			t.Errorf("Feedback(%v, %s, %v, %d) = %q, want %q", tt.correct, tt.d, tt.withinTime, tt.streak, got, tt.want)
		}
	}
}

func TestHandleAnswer_OffTopicNeverOfficial(t *testing.T) {
	qs := append(pool(1, 2, "fractions"), pool(101, 2, "decimals")...)
	s := newTestState(qs, nil, 4)

	// Answered without being served in remediation.
	out, err := HandleAnswer(s, 101, question.Single("a"), 5, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Remedial || !s.QuestionScores[0].IsRemedial {
		t.Error("decimals answer in a fractions quiz must be remedial")
	}
	if s.CurrentTopicQuestions != 0 {
		t.Errorf("CurrentTopicQuestions = %d, want 0", s.CurrentTopicQuestions)
	}

	if _, err := HandleAnswer(s, 1, question.Single("b"), 5, testNow); err != nil {
		t.Fatal(err)
	}
	if s.CurrentTopicQuestions != 1 || s.TopicPercentage() != 0 {
		t.Errorf("official = %d questions at %v%%", s.CurrentTopicQuestions, s.TopicPercentage())
	}
}

func TestHandleAnswer_HintsChargedOnce(t *testing.T) {
	s := newTestState(pool(1, 3, "fractions"), nil, 10)
	s.CurrentQuestionID = 1
	s.AwaitingAnswer = true
	s.CurrentHintsUsed = 1

	first, err := HandleAnswer(s, 1, question.Single("b"), 5, testNow)
	if err != nil {
		t.Fatal(err)
	}
	second, err := HandleAnswer(s, 1, question.Single("a"), 5, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if first.HintsUsed != 1 || second.HintsUsed != 0 {
		t.Errorf("hints charged: first=%d second=%d, want 1 then 0", first.HintsUsed, second.HintsUsed)
	}
}
