package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/goatkit/issueflow/internal/api"
	"github.com/goatkit/issueflow/internal/auth"
	"github.com/goatkit/issueflow/internal/config"
	"github.com/goatkit/issueflow/internal/database"
	"github.com/goatkit/issueflow/internal/notifications"
	"github.com/goatkit/issueflow/internal/repository"
	"github.com/goatkit/issueflow/internal/service"
)

// app holds the wired services shared by the commands.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	db  *database.DB

	redis *redis.Client

	tokens      *auth.JWTManager
	auth        *service.AuthService
	users       *service.UserService
	departments *service.DepartmentService
	issues      *service.IssueService
	responses   *service.ResponseService
	licenses    *service.LicenseService
}

func serviceOptions(cfg *config.Config) service.Options {
	policy := auth.DefaultPasswordPolicy()
	if cfg.Auth.PasswordMinLength > 0 {
		policy.MinSize = cfg.Auth.PasswordMinLength
	}
	return service.Options{
		EmptyListNotFound: cfg.Compat.EmptyListNotFound,
		ExpiryHorizonDays: cfg.Scheduler.ExpiryHorizonDays,
		PasswordPolicy:    policy,
	}
}

// newApp connects to the database and builds every service.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, db: db}

	a.tokens, err = auth.NewJWTManager(
		cfg.Auth.AccessTokenSecret,
		cfg.Auth.RefreshTokenSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
		cfg.Auth.Issuer,
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var refresh auth.RefreshStore
	switch cfg.Auth.RefreshStore {
	case "redis":
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		refresh = auth.NewRedisRefreshStore(a.redis)
	default:
		refresh = auth.NewSQLRefreshStore(repository.NewUserRepository(db))
	}

	notifier := notifications.NewMailer(notifications.NewSMTPProvider(&cfg.Email), log)
	opts := serviceOptions(cfg)

	a.auth = service.NewAuthService(db, a.tokens, refresh, opts, log)
	a.users = service.NewUserService(db, opts, log)
	a.departments = service.NewDepartmentService(db, opts, log)
	a.issues = service.NewIssueService(db, notifier, opts, log)
	a.responses = service.NewResponseService(db, opts, log)
	a.licenses = service.NewLicenseService(db, notifier, opts, log)
	return a, nil
}

func (a *app) services() api.Services {
	return api.Services{
		Auth:        a.auth,
		Users:       a.users,
		Departments: a.departments,
		Issues:      a.issues,
		Responses:   a.responses,
		Licenses:    a.licenses,
		Tokens:      a.tokens,
	}
}

// registerMetrics exposes the connection pool on the default registry.
func (a *app) registerMetrics() {
	err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, a.db, a.cfg.Database.Name)
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		a.log.Warn().Err(err).Msg("database pool metrics unavailable")
	}
}

func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}
