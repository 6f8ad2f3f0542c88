package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/adaptiq/internal/question"
)

// questionRepo implements QuestionRepo. Options, correct ids and hints are
// stored as JSON text columns.
type questionRepo struct {
	db      *sql.DB
	dialect string
}

func (r *questionRepo) Upsert(ctx context.Context, q *question.Question) error {
	if q.ID <= 0 {
		return fmt.Errorf("question id must be positive, got %d", q.ID)
	}
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	correct, err := json.Marshal(q.CorrectIDs)
	if err != nil {
		return fmt.Errorf("marshal correct ids: %w", err)
	}
	hints := q.Hints
	if hints == nil {
		hints = []string{}
	}
	hintsJSON, err := json.Marshal(hints)
	if err != nil {
		return fmt.Errorf("marshal hints: %w", err)
	}

	query, args := entsql.Dialect(r.dialect).
		Insert("questions").
		Columns("id", "year", "subject", "topic", "difficulty", "text",
			"options_json", "correct_json", "hints_json", "created_at").
		Values(q.ID, q.Year, q.Subject, q.Topic, string(q.Difficulty), q.Text,
			string(opts), string(correct), string(hintsJSON), time.Now().Unix()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range []string{"year", "subject", "topic", "difficulty", "text",
					"options_json", "correct_json", "hints_json"} {
					u.SetExcluded(c)
				}
			}),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert question %d: %w", q.ID, err)
	}
	return nil
}

var questionColumns = []string{"id", "year", "subject", "topic", "difficulty", "text",
	"options_json", "correct_json", "hints_json"}

func (r *questionRepo) Get(ctx context.Context, id int64) (*question.Question, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(questionColumns...).
		From(entsql.Table("questions")).
		Where(entsql.EQ("id", id)).
		Query()

	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

func (r *questionRepo) ByTopic(ctx context.Context, year, subject, topic string) ([]question.Question, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(questionColumns...).
		From(entsql.Table("questions")).
		Where(entsql.And(
			entsql.EQ("year", year),
			entsql.EQ("subject", subject),
			entsql.EQ("topic", topic),
		)).
		OrderBy("id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []question.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (r *questionRepo) Count(ctx context.Context) (int, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(entsql.Count("*")).
		From(entsql.Table("questions")).
		Query()

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func scanQuestion(row rowScanner) (*question.Question, error) {
	var (
		q                       question.Question
		diff                    string
		opts, correct, hintsRaw string
	)
	if err := row.Scan(&q.ID, &q.Year, &q.Subject, &q.Topic, &diff, &q.Text,
		&opts, &correct, &hintsRaw); err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}
	q.Difficulty = question.Difficulty(diff)
	if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
		return nil, fmt.Errorf("decode options of question %d: %w", q.ID, err)
	}
	if err := json.Unmarshal([]byte(correct), &q.CorrectIDs); err != nil {
		return nil, fmt.Errorf("decode correct ids of question %d: %w", q.ID, err)
	}
	if err := json.Unmarshal([]byte(hintsRaw), &q.Hints); err != nil {
		return nil, fmt.Errorf("decode hints of question %d: %w", q.ID, err)
	}
	return &q, nil
}
