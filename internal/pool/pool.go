// Package pool imports question pools from JSON documents. A document is
// checked against a JSON Schema, then for consistency between options and
// answers, before any question is written.
package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/store"
)

// Document is the import file format.
type Document struct {
	Year      string              `json:"year,omitempty"`
	Subject   string              `json:"subject,omitempty"`
	Questions []question.Question `json:"questions"`
}

// ImportError reports a document that failed validation. Nothing was
// written.
type ImportError struct {
	QuestionID int64 // 0 when the error is not tied to one question
	Err        error
}

func (e *ImportError) Error() string {
	if e.QuestionID != 0 {
		return fmt.Sprintf("question %d: %v", e.QuestionID, e.Err)
	}
	return e.Err.Error()
}

func (e *ImportError) Unwrap() error { return e.Err }

// Report summarizes an import.
type Report struct {
	Imported int
	Topics   map[string]int // topic key -> question count
}

// Parse validates raw and returns its questions with document defaults
// applied.
func Parse(raw []byte) ([]question.Question, error) {
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ImportError{Err: fmt.Errorf("decode document: %w", err)}
	}

	seen := make(map[int64]bool, len(doc.Questions))
	for i := range doc.Questions {
		q := &doc.Questions[i]
		if q.Year == "" {
			q.Year = doc.Year
		}
		if q.Subject == "" {
			q.Subject = doc.Subject
		}
		if seen[q.ID] {
			return nil, &ImportError{QuestionID: q.ID, Err: errors.New("duplicate id")}
		}
		seen[q.ID] = true
		if err := check(q); err != nil {
			return nil, &ImportError{QuestionID: q.ID, Err: err}
		}
	}
	return doc.Questions, nil
}

// check enforces what the schema cannot express.
func check(q *question.Question) error {
	if q.Year == "" || q.Subject == "" {
		return errors.New("year and subject are required on the question or the document")
	}
	ids := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		if slices.Contains(ids, o.ID) {
			return fmt.Errorf("duplicate option id %q", o.ID)
		}
		ids = append(ids, o.ID)
	}
	for _, id := range q.CorrectIDs {
		if !q.HasOption(id) {
			return fmt.Errorf("correct answer %q is not an option", id)
		}
	}
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("text is blank")
	}
	return nil
}

// Import validates the document read from r and upserts every question.
// Validation covers the whole document before the first write.
func Import(ctx context.Context, repo store.QuestionRepo, r io.Reader) (*Report, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	qs, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	rep := &Report{Topics: make(map[string]int)}
	for i := range qs {
		if err := repo.Upsert(ctx, &qs[i]); err != nil {
			return rep, fmt.Errorf("store question %d: %w", qs[i].ID, err)
		}
		rep.Imported++
		rep.Topics[store.TopicKey(qs[i].Year, qs[i].Subject, qs[i].Topic)]++
	}
	return rep, nil
}

// ImportFile imports the document at path.
func ImportFile(ctx context.Context, repo store.QuestionRepo, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Import(ctx, repo, f)
}
