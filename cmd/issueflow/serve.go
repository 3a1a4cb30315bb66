package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/goatkit/issueflow/internal/api"
	"github.com/goatkit/issueflow/internal/middleware"
	"github.com/goatkit/issueflow/internal/services/scheduler"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(load loader) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the license expiry scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate {
				if err := migrateSchema(ctx, a); err != nil {
					return err
				}
			}
			if cfg.Server.MetricsEnabled {
				a.registerMetrics()
			}

			if cfg.App.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}

			limiter := middleware.NewRateLimiter(time.Minute)
			defer limiter.Stop()
			router := api.NewAPIRouter(a.services(), cfg, log, api.WithLoginRateLimiter(limiter))

			if cfg.Scheduler.Enabled {
				sched := scheduler.NewService(a.licenses,
					scheduler.WithLogger(log),
					scheduler.WithLocation(cfg.Scheduler.Location()),
					scheduler.WithJobs(buildSchedulerJobsFromConfig(cfg)),
				)
				if err := sched.Start(ctx); err != nil {
					return err
				}
				defer func() { <-sched.Stop().Done() }()
			}

			srv := &http.Server{
				Addr:         cfg.Server.Addr(),
				Handler:      router.Engine(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Str("env", cfg.App.Env).Msg("server listening")
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

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "create missing tables before serving")
	return cmd
}
