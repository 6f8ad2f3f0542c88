package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type weaknessRepo struct {
	db      *sql.DB
	dialect string
}

var weaknessColumns = []string{
	"user_id", "year", "subject", "topic",
	"weakness_score", "improvement_trend", "remediation_attempts", "updated_at",
}

func (r *weaknessRepo) Get(ctx context.Context, userID, year, subject, topic string) (*WeaknessRecord, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(weaknessColumns...).
		From(entsql.Table("weakness_records")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("year", year),
			entsql.EQ("subject", subject),
			entsql.EQ("topic", topic),
		)).
		Query()

	rec, err := scanWeakness(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query weakness record: %w", err)
	}
	return rec, nil
}

func (r *weaknessRepo) Upsert(ctx context.Context, rec *WeaknessRecord) error {
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	query, args := entsql.Dialect(r.dialect).
		Insert("weakness_records").
		Columns(weaknessColumns...).
		Values(rec.UserID, rec.Year, rec.Subject, rec.Topic,
			rec.Score, rec.Trend, 1, updated.Unix()).
		OnConflict(
			entsql.ConflictColumns("user_id", "year", "subject", "topic"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("weakness_score")
				u.SetExcluded("improvement_trend")
				u.SetExcluded("updated_at")
				u.Add("remediation_attempts", 1)
			}),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert weakness record: %w", err)
	}
	return nil
}

func (r *weaknessRepo) ListByUser(ctx context.Context, userID string) ([]WeaknessRecord, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(weaknessColumns...).
		From(entsql.Table("weakness_records")).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("weakness_score"), "year", "subject", "topic").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query weakness records: %w", err)
	}
	defer rows.Close()

	var out []WeaknessRecord
	for rows.Next() {
		rec, err := scanWeakness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan weakness record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWeakness(s rowScanner) (*WeaknessRecord, error) {
	var (
		rec     WeaknessRecord
		updated int64
	)
	if err := s.Scan(&rec.UserID, &rec.Year, &rec.Subject, &rec.Topic,
		&rec.Score, &rec.Trend, &rec.RemediationAttempts, &updated); err != nil {
		return nil, err
	}
	rec.UpdatedAt = time.Unix(updated, 0).UTC()
	return &rec, nil
}
