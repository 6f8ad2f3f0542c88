package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// sqlSessionRepo keeps sessions in the quiz_sessions table.
type sqlSessionRepo struct {
	db      *sql.DB
	dialect string
}

func (r *sqlSessionRepo) Save(ctx context.Context, rec *SessionRecord) error {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query, args := entsql.Dialect(r.dialect).
		Insert("quiz_sessions").
		Columns("id", "user_id", "completed", "data_json", "created_at", "updated_at").
		Values(rec.ID, rec.UserID, rec.Completed, string(rec.Data),
			rec.CreatedAt.Unix(), rec.UpdatedAt.Unix()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("completed")
				u.SetExcluded("data_json")
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save session %s: %w", rec.ID, err)
	}
	return nil
}

func (r *sqlSessionRepo) Get(ctx context.Context, id string) (*SessionRecord, error) {
	query, args := entsql.Dialect(r.dialect).
		Select("id", "user_id", "completed", "data_json", "created_at", "updated_at").
		From(entsql.Table("quiz_sessions")).
		Where(entsql.EQ("id", id)).
		Query()

	var (
		rec              SessionRecord
		data             string
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&rec.ID, &rec.UserID, &rec.Completed, &data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session %s: %w", id, err)
	}
	rec.Data = []byte(data)
	rec.CreatedAt = time.Unix(created, 0).UTC()
	rec.UpdatedAt = time.Unix(updated, 0).UTC()
	return &rec, nil
}

func (r *sqlSessionRepo) Delete(ctx context.Context, id string) error {
	query, args := entsql.Dialect(r.dialect).
		Delete("quiz_sessions").
		Where(entsql.EQ("id", id)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (r *sqlSessionRepo) Sweep(ctx context.Context, opts SweepOpts) (int, error) {
	var preds []*entsql.Predicate
	if !opts.CompletedBefore.IsZero() {
		preds = append(preds, entsql.And(
			entsql.EQ("completed", true),
			entsql.LT("created_at", opts.CompletedBefore.Unix()),
		))
	}
	if !opts.IdleBefore.IsZero() {
		preds = append(preds, entsql.And(
			entsql.EQ("completed", false),
			entsql.LT("updated_at", opts.IdleBefore.Unix()),
		))
	}
	if len(preds) == 0 {
		return 0, nil
	}

	query, args := entsql.Dialect(r.dialect).
		Delete("quiz_sessions").
		Where(entsql.Or(preds...)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return int(n), nil
}
