package session

import (
	"errors"
	"fmt"
)

// Reasons carried by StateConflictError.
var (
	ErrSessionCompleted  = errors.New("session is completed")
	ErrAlreadyMastered   = errors.New("question was already answered correctly")
	ErrNoCurrentQuestion = errors.New("no question has been served")
	ErrNoHints           = errors.New("question has no hints")
	ErrHintLocked        = errors.New("not enough wrong attempts to unlock a hint")
	ErrHintsExhausted    = errors.New("all hints for this question are revealed")
)

// ValidationError reports malformed input. No state is mutated.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports an unknown session, question or question pool.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// StateConflictError reports an operation the session's state forbids.
type StateConflictError struct {
	Err error
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict: %v", e.Err)
}

func (e *StateConflictError) Unwrap() error { return e.Err }

// PersistenceError reports a failed durable write or read.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsStateConflict(err error) bool {
	var e *StateConflictError
	return errors.As(err, &e)
}

func IsPersistence(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e)
}

func conflict(err error) error {
	return &StateConflictError{Err: err}
}
