// Package app assembles the services shared by the server and beastctl
// from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/playperu/beastgames/internal/config"
	"github.com/playperu/beastgames/internal/database"
	"github.com/playperu/beastgames/internal/handler/health"
	"github.com/playperu/beastgames/internal/identity"
	"github.com/playperu/beastgames/internal/migrations"
	"github.com/playperu/beastgames/internal/registration"
	"github.com/playperu/beastgames/internal/server"
	"github.com/playperu/beastgames/internal/store"
)

type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *sql.DB
	Store    store.Store
	Identity *identity.Service
	Resolver *registration.AdminResolver
	Profiles *registration.Profiles
	Selector *registration.Selector
	Console  *registration.Console
}

// Open connects to SQLite, runs migrations and opens the configured
// profile store. Sessions always live in SQLite.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	applied, err := migrations.Run(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "driver", cfg.DBDriver, "migrations_applied", len(applied))

	var st store.Store
	switch cfg.StoreBackend {
	case config.BackendRedis:
		rs, err := store.NewRedisStore(ctx, cfg.RedisURL, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		st = rs
		logger.Info("profile store: redis")
	default:
		st = store.NewSQLiteStore(db)
		logger.Info("profile store: sqlite")
	}

	resolver := registration.NewAdminResolver(st, cfg.AdminEmails, logger)
	return &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Store:  st,
		Identity: identity.NewService(db, identity.Config{
			SessionTTL: cfg.SessionTTL,
			Federated: identity.FederatedConfig{
				Issuer:   cfg.FederatedIssuer,
				Audience: cfg.FederatedAudience,
				Secret:   []byte(cfg.FederatedSecret),
			},
		}),
		Resolver: resolver,
		Profiles: registration.NewProfiles(st, resolver, logger),
		Selector: registration.NewSelector(st, logger),
		Console:  registration.NewConsole(st, logger),
	}, nil
}

// HealthChecks reports SQLite, plus Redis when it backs the profile store.
func (a *App) HealthChecks() map[string]health.Checker {
	checks := map[string]health.Checker{
		"sqlite": health.CheckerFunc(a.DB.PingContext),
	}
	if a.Config.StoreBackend == config.BackendRedis {
		checks["redis"] = health.CheckerFunc(a.Store.Ping)
	}
	return checks
}

func (a *App) ServerDeps() server.Deps {
	return server.Deps{
		Logger:         a.Logger,
		Identity:       a.Identity,
		Resolver:       a.Resolver,
		Profiles:       a.Profiles,
		Selector:       a.Selector,
		Console:        a.Console,
		Health:         a.HealthChecks(),
		SPADir:         a.Config.SPADir,
		CookieSecure:   a.Config.CookieSecure,
		AllowedOrigins: a.Config.AllowedOrigins,
	}
}

func (a *App) Close() error {
	return errors.Join(a.Store.Close(), a.DB.Close())
}
