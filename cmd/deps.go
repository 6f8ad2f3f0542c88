package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptiq/internal/config"
	"github.com/abhisek/adaptiq/internal/event"
	"github.com/abhisek/adaptiq/internal/logger"
	"github.com/abhisek/adaptiq/internal/session"
	"github.com/abhisek/adaptiq/internal/store"
	"github.com/abhisek/adaptiq/internal/weakness"
)

// env bundles what a command needs. close releases it in reverse order.
type env struct {
	cfg     config.Config
	log     *logger.Logger
	st      *store.Store
	svc     *session.Service
	closers []func() error
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.log.Warn("close failed", "error", err)
		}
	}
	e.log.Sync()
}

// loadConfig reads the environment and applies the --db and --driver
// flags, which take priority.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if d, _ := cmd.Flags().GetString("driver"); d != "" {
		cfg.DB.Driver = d
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DB.DSN = p
	}
	return cfg, cfg.Validate()
}

// openEnv opens the store and, when withService is set, wires the quiz
// service with its session backend and event publisher.
func openEnv(cmd *cobra.Command, withService bool) (*env, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	e := &env{cfg: cfg, log: log}
	st, err := store.Open(ctx, store.Driver(cfg.DB.Driver), cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	e.st = st
	e.closers = append(e.closers, st.Close)

	if !withService {
		return e, nil
	}

	sessions, err := sessionRepo(ctx, e)
	if err != nil {
		e.close()
		return nil, err
	}

	pub, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange, log)
	if err != nil {
		// Events are best-effort; the service runs without them.
		log.Warn("event publisher unavailable", "error", err)
		pub, _ = event.NewEventPublisher("", "", log)
	}
	e.closers = append(e.closers, pub.Close)

	e.svc = session.NewService(session.Deps{
		Questions:    st.QuestionRepo(),
		Progress:     st.ProgressRepo(),
		Attempts:     st.AttemptRepo(),
		Events:       st.EventRepo(),
		Weakness:     weakness.NewTracker(st.WeaknessRepo()),
		Sessions:     session.NewStore(sessions),
		Publisher:    pub,
		Logger:       log,
		MaxQuestions: cfg.MaxQuestions,
	})
	return e, nil
}

func sessionRepo(ctx context.Context, e *env) (store.SessionRepo, error) {
	if e.cfg.Sessions.Backend != "redis" {
		return e.st.SessionRepo(), nil
	}
	rdb, err := store.OpenRedis(ctx, e.cfg.Redis.Addr, e.cfg.Redis.Password, e.cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("open redis: %w", err)
	}
	e.closers = append(e.closers, rdb.Close)
	e.log.Info("sessions stored in redis", "addr", e.cfg.Redis.Addr, "ttl", e.cfg.Sessions.TTL)
	return store.NewRedisSessionRepo(rdb, e.cfg.Sessions.TTL), nil
}
