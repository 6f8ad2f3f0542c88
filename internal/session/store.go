package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/adaptiq/internal/store"
)

// Store persists session aggregates through a keyed SessionRepo. The
// storage representation never leaves this type.
type Store struct {
	repo store.SessionRepo
}

// NewStore creates a Store over repo.
func NewStore(repo store.SessionRepo) *Store {
	return &Store{repo: repo}
}

// Save writes s.
func (st *Store) Save(ctx context.Context, s *State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return &PersistenceError{Op: "encode session", Err: err}
	}
	rec := &store.SessionRecord{
		ID:        s.ID,
		UserID:    s.UserID,
		Completed: s.IsCompleted(),
		Data:      data,
		CreatedAt: s.StartTime,
	}
	if err := st.repo.Save(ctx, rec); err != nil {
		return &PersistenceError{Op: "save session", Err: err}
	}
	return nil
}

// Load reads the session with the given id.
func (st *Store) Load(ctx context.Context, id string) (*State, error) {
	rec, err := st.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "session", ID: id}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load session", Err: err}
	}

	var s State
	if err := json.Unmarshal(rec.Data, &s); err != nil {
		return nil, &PersistenceError{Op: "decode session", Err: fmt.Errorf("session %s: %w", id, err)}
	}
	if s.QuestionAttempts == nil {
		s.QuestionAttempts = make(map[int64]*QuestionAttempt)
	}
	return &s, nil
}

// Delete removes the session.
func (st *Store) Delete(ctx context.Context, id string) error {
	if err := st.repo.Delete(ctx, id); err != nil {
		return &PersistenceError{Op: "delete session", Err: err}
	}
	return nil
}

// Sweep removes stale sessions.
func (st *Store) Sweep(ctx context.Context, opts store.SweepOpts) (int, error) {
	n, err := st.repo.Sweep(ctx, opts)
	if err != nil {
		return n, &PersistenceError{Op: "sweep sessions", Err: err}
	}
	return n, nil
}
