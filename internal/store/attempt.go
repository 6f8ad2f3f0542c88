package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// dbtx is satisfied by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type attemptRepo struct {
	db      *sql.DB
	dialect string
}

var attemptColumns = []string{
	"id", "user_id", "quiz_id", "attempt_number", "score", "time_taken",
	"questions_answered", "total_questions", "ability_estimate", "passed", "created_at",
}

func (r *attemptRepo) Count(ctx context.Context, userID, quizID string) (int, error) {
	return countAttempts(ctx, r.db, r.dialect, userID, quizID)
}

func (r *attemptRepo) Create(ctx context.Context, rec *AttemptRecord) error {
	return insertAttempt(ctx, r.db, r.dialect, rec)
}

func (r *attemptRepo) Finalize(ctx context.Context, rec *AttemptRecord, merge ProgressMerge) (err error) {
	if rec.ID == "" {
		return errors.New("finalize attempt: id is required")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finalize: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	existing, err := getAttempt(ctx, tx, r.dialect, rec.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		*rec = *existing
		return tx.Commit()
	}

	prior, err := countAttempts(ctx, tx, r.dialect, rec.UserID, rec.QuizID)
	if err != nil {
		return err
	}
	rec.AttemptNumber = prior + 1
	if err := insertAttempt(ctx, tx, r.dialect, rec); err != nil {
		return err
	}

	prev, err := getProgress(ctx, tx, r.dialect, rec.UserID, rec.QuizID)
	if err != nil {
		return err
	}
	next, err := merge(prev, rec)
	if err != nil {
		return fmt.Errorf("merge progress: %w", err)
	}
	if err := upsertProgress(ctx, tx, r.dialect, next); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finalize: %w", err)
	}
	return nil
}

func (r *attemptRepo) ListByUser(ctx context.Context, userID string, limit int) ([]AttemptRecord, error) {
	sel := entsql.Dialect(r.dialect).
		Select(attemptColumns...).
		From(entsql.Table("quiz_attempts")).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("attempt_number"))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func countAttempts(ctx context.Context, db dbtx, dia, userID, quizID string) (int, error) {
	query, args := entsql.Dialect(dia).
		Select(entsql.Count("*")).
		From(entsql.Table("quiz_attempts")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("quiz_id", quizID),
		)).
		Query()

	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

func insertAttempt(ctx context.Context, db dbtx, dia string, rec *AttemptRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query, args := entsql.Dialect(dia).
		Insert("quiz_attempts").
		Columns(attemptColumns...).
		Values(rec.ID, rec.UserID, rec.QuizID, rec.AttemptNumber, rec.Score, rec.TimeTaken,
			rec.QuestionsAnswered, rec.TotalQuestions, rec.AbilityEstimate, rec.Passed,
			rec.CreatedAt.Unix()).
		Query()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

// getAttempt returns the attempt with id, or nil if none exists.
func getAttempt(ctx context.Context, db dbtx, dia, id string) (*AttemptRecord, error) {
	query, args := entsql.Dialect(dia).
		Select(attemptColumns...).
		From(entsql.Table("quiz_attempts")).
		Where(entsql.EQ("id", id)).
		Query()

	a, err := scanAttempt(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attempt: %w", err)
	}
	return a, nil
}

func scanAttempt(s rowScanner) (*AttemptRecord, error) {
	var (
		a       AttemptRecord
		created int64
	)
	if err := s.Scan(&a.ID, &a.UserID, &a.QuizID, &a.AttemptNumber, &a.Score, &a.TimeTaken,
		&a.QuestionsAnswered, &a.TotalQuestions, &a.AbilityEstimate, &a.Passed, &created); err != nil {
		return nil, err
	}
	a.CreatedAt = time.Unix(created, 0).UTC()
	return &a, nil
}
