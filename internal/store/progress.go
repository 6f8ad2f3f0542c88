package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type progressRepo struct {
	db      *sql.DB
	dialect string
}

var progressColumns = []string{
	"user_id", "quiz_id", "year", "subject", "topic", "passed",
	"last_score", "best_score", "total_attempts", "last_activity",
}

func (r *progressRepo) Get(ctx context.Context, userID, quizID string) (*ProgressRecord, error) {
	return getProgress(ctx, r.db, r.dialect, userID, quizID)
}

func (r *progressRepo) Upsert(ctx context.Context, rec *ProgressRecord) error {
	return upsertProgress(ctx, r.db, r.dialect, rec)
}

func (r *progressRepo) ListByUser(ctx context.Context, userID string) ([]ProgressRecord, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(progressColumns...).
		From(entsql.Table("quiz_progress")).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("quiz_id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func getProgress(ctx context.Context, db dbtx, dia, userID, quizID string) (*ProgressRecord, error) {
	query, args := entsql.Dialect(dia).
		Select(progressColumns...).
		From(entsql.Table("quiz_progress")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("quiz_id", quizID),
		)).
		Query()

	rec, err := scanProgress(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return rec, nil
}

func upsertProgress(ctx context.Context, db dbtx, dia string, rec *ProgressRecord) error {
	query, args := entsql.Dialect(dia).
		Insert("quiz_progress").
		Columns(progressColumns...).
		Values(rec.UserID, rec.QuizID, rec.Year, rec.Subject, rec.Topic, rec.Passed,
			rec.LastScore, rec.BestScore, rec.TotalAttempts, rec.LastActivity.Unix()).
		OnConflict(
			entsql.ConflictColumns("user_id", "quiz_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func scanProgress(s rowScanner) (*ProgressRecord, error) {
	var (
		rec  ProgressRecord
		last int64
	)
	if err := s.Scan(&rec.UserID, &rec.QuizID, &rec.Year, &rec.Subject, &rec.Topic, &rec.Passed,
		&rec.LastScore, &rec.BestScore, &rec.TotalAttempts, &last); err != nil {
		return nil, err
	}
	rec.LastActivity = time.Unix(last, 0).UTC()
	return &rec, nil
}
