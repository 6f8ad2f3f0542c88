package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptiq/internal/session"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// classify maps the session error taxonomy to an HTTP status and code.
func classify(err error) (int, string) {
	var (
		ve *session.ValidationError
		nf *session.NotFoundError
		sc *session.StateConflictError
		pe *session.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &nf):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &sc):
		return http.StatusConflict, conflictCode(sc.Err)
	case errors.As(err, &pe):
		return http.StatusInternalServerError, "persistence_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func conflictCode(reason error) string {
	switch {
	case errors.Is(reason, session.ErrSessionCompleted):
		return "session_completed"
	case errors.Is(reason, session.ErrAlreadyMastered):
		return "already_answered"
	case errors.Is(reason, session.ErrHintLocked):
		return "hint_locked"
	case errors.Is(reason, session.ErrHintsExhausted):
		return "hints_exhausted"
	case errors.Is(reason, session.ErrNoHints):
		return "no_hints"
	case errors.Is(reason, session.ErrNoCurrentQuestion):
		return "no_current_question"
	default:
		return "state_conflict"
	}
}
