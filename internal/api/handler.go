package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptiq/internal/logger"
	"github.com/abhisek/adaptiq/internal/session"
	"github.com/abhisek/adaptiq/internal/store"
)

// Handler exposes the quiz operations over HTTP.
type Handler struct {
	svc *session.Service
	log *logger.Logger
}

func NewHandler(svc *session.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log}
}

// fail writes the error envelope. Server-side failures are logged here
// since their message is the only trace of the cause.
func (h *Handler) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "session_id", c.Param("id"), "error", err)
	}
	respondError(c, status, code, err)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "validation_error", err)
}

// StartSession handles POST /sessions. The user id comes from the body or,
// when absent there, from the X-User-ID header.
func (h *Handler) StartSession(c *gin.Context) {
	var req session.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = c.GetHeader(UserHeader)
	}

	res, err := h.svc.Start(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetSession handles GET /sessions/:id.
func (h *Handler) GetSession(c *gin.Context) {
	res, err := h.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// NextQuestion handles GET /sessions/:id/next.
func (h *Handler) NextQuestion(c *gin.Context) {
	res, err := h.svc.NextQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SubmitAnswer handles POST /sessions/:id/answers.
func (h *Handler) SubmitAnswer(c *gin.Context) {
	var req session.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if req.QuestionID == 0 {
		h.badRequest(c, errors.New("questionId is required"))
		return
	}

	res, err := h.svc.SubmitAnswer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RequestHint handles POST /sessions/:id/hints.
func (h *Handler) RequestHint(c *gin.Context) {
	res, err := h.svc.RequestHint(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Results handles POST /sessions/:id/results.
func (h *Handler) Results(c *gin.Context) {
	res, err := h.svc.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Audit handles GET /sessions/:id/events. The optional "after" and "limit"
// query parameters page through the answer events by sequence.
func (h *Handler) Audit(c *gin.Context) {
	var opts store.QueryOpts
	if v := c.Query("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			h.badRequest(c, errors.New("after must be a non-negative integer"))
			return
		}
		opts.After = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.badRequest(c, errors.New("limit must be a non-negative integer"))
			return
		}
		opts.Limit = n
	}

	res, err := h.svc.Audit(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
