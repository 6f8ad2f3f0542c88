package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter manages the global monotonic sequence number shared by
// answer and hint events, so the two tables can be merged into one ordered
// stream. The mutex serializes within the process; the RETURNING clause
// makes the increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

func newSequenceCounter(ctx context.Context, db *sql.DB, dia string) (*sequenceCounter, error) {
	query, args := entsql.Dialect(dia).
		Insert("global_sequence").
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// eventRepo implements EventRepo.
type eventRepo struct {
	db      *sql.DB
	dialect string
	seq     *sequenceCounter
}

func (r *eventRepo) AppendAnswerEvent(ctx context.Context, data AnswerEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(r.dialect).
		Insert("answer_events").
		Columns("sequence", "session_id", "user_id", "question_id", "correct",
			"points", "time_spent", "hints_used", "remedial", "created_at").
		Values(seqNum, data.SessionID, data.UserID, data.QuestionID, data.Correct,
			data.Points, data.TimeSpent, data.HintsUsed, data.Remedial, time.Now().Unix()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save answer event: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendHintEvent(ctx context.Context, data HintEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(r.dialect).
		Insert("hint_events").
		Columns("sequence", "session_id", "user_id", "question_id", "hint_index", "created_at").
		Values(seqNum, data.SessionID, data.UserID, data.QuestionID, data.HintIndex, time.Now().Unix()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save hint event: %w", err)
	}
	return nil
}

func (r *eventRepo) AnswerEvents(ctx context.Context, sessionID string, opts QueryOpts) ([]AnswerEvent, error) {
	preds := []*entsql.Predicate{entsql.EQ("session_id", sessionID)}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}

	sel := entsql.Dialect(r.dialect).
		Select("sequence", "session_id", "user_id", "question_id", "correct",
			"points", "time_spent", "hints_used", "remedial", "created_at").
		From(entsql.Table("answer_events")).
		Where(entsql.And(preds...)).
		OrderBy("sequence")
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query answer events: %w", err)
	}
	defer rows.Close()

	var out []AnswerEvent
	for rows.Next() {
		var (
			ev      AnswerEvent
			created int64
		)
		if err := rows.Scan(&ev.Sequence, &ev.SessionID, &ev.UserID, &ev.QuestionID, &ev.Correct,
			&ev.Points, &ev.TimeSpent, &ev.HintsUsed, &ev.Remedial, &created); err != nil {
			return nil, fmt.Errorf("scan answer event: %w", err)
		}
		ev.Timestamp = time.Unix(created, 0).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *eventRepo) HintCount(ctx context.Context, sessionID string) (int, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(entsql.Count("*")).
		From(entsql.Table("hint_events")).
		Where(entsql.EQ("session_id", sessionID)).
		Query()

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count hint events: %w", err)
	}
	return n, nil
}
