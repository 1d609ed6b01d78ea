// Package bootstrap assembles the object graph shared by the api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cassiomorais/marketsync/internal/account"
	"github.com/cassiomorais/marketsync/internal/auth"
	"github.com/cassiomorais/marketsync/internal/controller"
	"github.com/cassiomorais/marketsync/internal/credentials"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/gateway"
	"github.com/cassiomorais/marketsync/internal/infrastructure/config"
	"github.com/cassiomorais/marketsync/internal/infrastructure/oauth"
	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
	"github.com/cassiomorais/marketsync/internal/infrastructure/postgres"
	infraRedis "github.com/cassiomorais/marketsync/internal/infrastructure/redis"
	"github.com/cassiomorais/marketsync/internal/infrastructure/sqlite"
	"github.com/cassiomorais/marketsync/internal/marketplace"
	"github.com/cassiomorais/marketsync/internal/service/listing"
	"github.com/cassiomorais/marketsync/internal/service/orders"
	"github.com/cassiomorais/marketsync/internal/service/scheduler"
	"github.com/cassiomorais/marketsync/internal/store"
	"github.com/cassiomorais/marketsync/internal/telemetry"
)

type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Metrics      *observability.Metrics
	Store        store.Store
	HealthChecks map[string]controller.Pinger
	Redis        *redis.Client

	Directory    *account.Directory
	Telemetry    *telemetry.Recorder
	Auth         *auth.Manager
	Gateway      *gateway.Gateway
	Registry     *marketplace.Registry
	Orchestrator *listing.Orchestrator
	Aggregator   *orders.Aggregator
	Scheduler    *scheduler.Scheduler

	closers []func()
}

func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Str("service", serviceName).Str("store", cfg.Store.Driver).Msg("Starting")

	app := &App{
		Config:       cfg,
		Logger:       logger,
		Metrics:      observability.NewMetrics(metricsNamespace, nil),
		HealthChecks: make(map[string]controller.Pinger),
	}

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracer(serviceName, cfg.InstanceID, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			app.closers = append(app.closers, func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Warn().Err(err).Msg("Tracer shutdown failed")
				}
			})
			logger.Info().Msg("Tracing enabled")
		}
	}

	if err := app.openStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	app.wire()

	return app, nil
}

// openStore connects the configured backend. Redis is also opened next to
// postgres so that token refreshes and sync cycles lock across replicas.
func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config

	if cfg.Store.Driver == "redis" || cfg.Store.Driver == "postgres" {
		client, err := infraRedis.NewClient(ctx, &cfg.Redis, a.Logger)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		a.Redis = client
		a.closers = append(a.closers, func() { client.Close() })
		a.HealthChecks["redis"] = infraRedis.NewStore(client, cfg.Redis.KeyPrefix)
		a.Logger.Info().Msg("Connected to Redis")
	}

	switch cfg.Store.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		s := postgres.NewStore(pool)
		a.Store = s
		a.HealthChecks["database"] = s
		a.Logger.Info().Msg("Connected to PostgreSQL")
	case "redis":
		s := infraRedis.NewStore(a.Redis, cfg.Redis.KeyPrefix)
		a.Store = s
	case "sqlite":
		s, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { s.Close() })
		a.Store = s
		a.HealthChecks["database"] = s
		a.Logger.Info().Str("path", cfg.Store.SQLitePath).Msg("Opened SQLite store")
	default:
		a.Store = store.NewMemory()
		a.Logger.Warn().Msg("Using in-memory store, state is lost on restart")
	}
	return nil
}

func (a *App) wire() {
	cfg := a.Config

	clients := make(map[platform.Platform]oauth.Client)
	baseURLs := make(map[platform.Platform]string)
	for _, p := range platform.All() {
		pc, ok := cfg.Platforms[p.String()]
		if !ok {
			continue
		}
		clients[p] = oauth.Client{
			TokenURL:     pc.TokenURL,
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  pc.RedirectURL,
		}
		baseURLs[p] = pc.BaseURL
	}

	creds := credentials.New(a.Store)
	exchanger := oauth.NewExchanger(clients, nil, cfg.Auth.ExchangeRetry, a.Logger)
	a.Directory = account.NewDirectory(a.Store, creds, exchanger, cfg.Auth.TokenValidity, a.Logger)
	a.Telemetry = telemetry.NewRecorder(a.Logger)

	authOpts := []auth.Option{auth.WithRecorder(a.Telemetry), auth.WithMetrics(a.Metrics)}
	if a.Redis != nil {
		authOpts = append(authOpts, auth.WithLocker(infraRedis.NewLocker(a.Redis, cfg.Redis.KeyPrefix, cfg.Auth.RefreshLockTTL, a.Logger)))
	}
	a.Auth = auth.NewManager(a.Directory, creds, cfg.Auth.TokenValidity, a.Logger, authOpts...)

	a.Gateway = gateway.New(gateway.Config{
		BaseURLs:          baseURLs,
		Timeout:           cfg.Gateway.RequestTimeout,
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
		Burst:             cfg.Gateway.Burst,
		BreakerThreshold:  uint32(cfg.Gateway.CircuitBreakerThreshold),
		BreakerTimeout:    cfg.Gateway.CircuitBreakerTimeout,
	}, a.Auth, a.Logger, gateway.WithMetrics(a.Metrics))

	a.Registry = marketplace.NewRegistry(
		marketplace.NewEBay(a.Gateway, cfg.Platforms[platform.EBay.String()].ListingURL),
		marketplace.NewFacebook(a.Gateway, cfg.Platforms[platform.Facebook.String()].ListingURL),
		marketplace.NewMercari(a.Gateway, cfg.Platforms[platform.Mercari.String()].ListingURL),
	)

	a.Orchestrator = listing.NewOrchestrator(a.Store, a.Registry, cfg.Sync.ListingTTL, a.Logger, listing.WithMetrics(a.Metrics))
	a.Aggregator = orders.NewAggregator(a.Store, a.Registry, a.Logger, orders.WithMetrics(a.Metrics))

	schedOpts := []scheduler.Option{scheduler.WithStatsSync(a.Orchestrator), scheduler.WithMetrics(a.Metrics)}
	if a.Redis != nil {
		schedOpts = append(schedOpts, scheduler.WithLocker(infraRedis.NewLocker(a.Redis, cfg.Redis.KeyPrefix, cfg.Sync.Interval, a.Logger)))
	}
	a.Scheduler = scheduler.New(a.Aggregator, a.Orchestrator, a.Telemetry, cfg.Sync.Interval, cfg.Sync.MaxPublishRetries, a.Logger, schedOpts...)
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
