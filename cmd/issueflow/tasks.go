package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goatkit/issueflow/internal/apierrors"
	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/models"
	"github.com/goatkit/issueflow/internal/services/scheduler"
)

func migrateSchema(ctx context.Context, a *app) error {
	if err := database.Migrate(ctx, a.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.log.Info().Str("driver", a.cfg.Database.Driver).Msg("schema up to date")
	return nil
}

func newMigrateCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			return migrateSchema(cmd.Context(), a)
		},
	}
}

// adminFromEnv reads the bootstrap administrator. The defaults are only
// usable outside production.
func adminFromEnv(production bool) (models.NewUser, error) {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	admin := models.NewUser{
		Username: get("ADMIN_USERNAME", "admin"),
		Password: get("ADMIN_PASSWORD", ""),
		Email:    get("ADMIN_EMAIL", "admin@example.com"),
		FullName: get("ADMIN_FULLNAME", "System Administrator"),
		IsAdmin:  true,
	}
	if admin.Password == "" {
		if production {
			return admin, fmt.Errorf("ADMIN_PASSWORD is required in production")
		}
		admin.Password = "admin@123"
	}
	return admin, nil
}

func newCreateAdminCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "create-admin",
		Short: "Create the initial administrator from ADMIN_* environment variables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			admin, err := adminFromEnv(cfg.App.IsProduction())
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.users.Create(cmd.Context(), admin)
			if apierrors.Is(err, apierrors.CodeConflict) {
				log.Info().Str("user_id", admin.Username).Msg("admin user already exists")
				return nil
			}
			if err != nil {
				return err
			}
			log.Warn().Str("user_id", created.Username).Msg("initial admin created, change the password after first login")
			return nil
		},
	}
}

func newSweepCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-licenses",
		Short: "Send license expiry reminders now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			sched := scheduler.NewService(a.licenses,
				scheduler.WithLogger(log),
				scheduler.WithLocation(cfg.Scheduler.Location()),
			)
			return sched.RunNow(cmd.Context(), scheduler.LicenseSweepSlug)
		},
	}
}
