package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/country-explorer/internal/api/http"
	"github.com/i474232898/country-explorer/internal/logging"
	"github.com/i474232898/country-explorer/internal/scheduler"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := newManager()
			defer sessions.Shutdown()

			// Prunes idle sessions and reloads rate tables.
			sched := scheduler.New(sessions, cfg.RefreshInterval, cfg.SessionMaxAge, logging.Component(log, "scheduler"))
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			app := httpapi.NewApp("country-explorer")
			httpapi.RegisterRoutes(app, sessions)

			go func() {
				log.Info().Str("port", cfg.Port).Msg("listening")
				if err := app.Listen(":" + cfg.Port); err != nil {
					log.Error().Err(err).Msg("fiber server stopped")
				}
			}()

			// Wait for termination signal
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("error during shutdown")
			}
			return nil
		},
	}
	return cmd
}
