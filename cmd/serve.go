package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptiq/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, true)
		if err != nil {
			return err
		}
		defer e.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go sweepLoop(ctx, e, time.Hour)

		addr := e.cfg.HTTPAddr
		if a, _ := cmd.Flags().GetString("addr"); a != "" {
			addr = a
		}
		e.log.Info("listening", "addr", addr, "db_driver", e.cfg.DB.Driver, "session_backend", e.cfg.Sessions.Backend)

		srv := api.NewServer(api.RouterConfig{
			Service:     e.svc,
			Logger:      e.log,
			CORSOrigins: e.cfg.CORSOrigins,
		})
		return srv.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides HTTP_ADDR env var)")
}
