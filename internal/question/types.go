package question

import (
	"fmt"
	"strings"
)

// Difficulty is the authored difficulty band of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty parses a difficulty label, case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// Option is a single selectable answer.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Question is a candidate item in an attempt's pool. It is never mutated
// once the attempt has started.
type Question struct {
	ID         int64      `json:"id"`
	Text       string     `json:"text"`
	Options    []Option   `json:"options"`
	CorrectIDs []string   `json:"correctAnswerIds"`
	Hints      []string   `json:"hints,omitempty"`
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`

	// Year and Subject are optional; a topic may span subjects.
	Year    string `json:"year,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// IsMultiAnswer reports whether more than one option is correct.
func (q *Question) IsMultiAnswer() bool {
	return len(q.CorrectIDs) > 1
}

// HasOption reports whether id names one of the question's options.
func (q *Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// View is the wire projection of a question served to a learner. It
// omits the correct answers.
type View struct {
	ID         int64      `json:"id"`
	Text       string     `json:"text"`
	Options    []Option   `json:"options"`
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
	Multiple   bool       `json:"multiple"`
	HintCount  int        `json:"hintCount"`
}

// Project returns the learner-safe view of q.
func (q *Question) Project() View {
	opts := make([]Option, len(q.Options))
	copy(opts, q.Options)
	return View{
		ID:         q.ID,
		Text:       q.Text,
		Options:    opts,
		Topic:      q.Topic,
		Difficulty: q.Difficulty,
		Multiple:   q.IsMultiAnswer(),
		HintCount:  len(q.Hints),
	}
}
