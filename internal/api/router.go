// Package api is the HTTP adapter of the quiz service.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptiq/internal/logger"
	"github.com/abhisek/adaptiq/internal/session"
)

type RouterConfig struct {
	Service     *session.Service
	Logger      *logger.Logger
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))
	r.Use(CORS(cfg.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := NewHandler(cfg.Service, cfg.Logger)
	quiz := r.Group("/api/quiz/sessions")
	{
		quiz.POST("", h.StartSession)
		quiz.GET("/:id", h.GetSession)
		quiz.GET("/:id/next", h.NextQuestion)
		quiz.POST("/:id/answers", h.SubmitAnswer)
		quiz.POST("/:id/hints", h.RequestHint)
		quiz.POST("/:id/results", h.Results)
		quiz.GET("/:id/events", h.Audit)
	}
	return r
}

type Server struct {
	Engine *gin.Engine
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{Engine: NewRouter(cfg)}
}

// Run serves on address until ctx is cancelled, then drains in-flight
// requests for up to five seconds.
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
