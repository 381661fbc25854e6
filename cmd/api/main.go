package main

import (
	"context"

	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"

	"github.com/vfg2006/saas-metrics-api/infrastructure/database/postgres"
	"github.com/vfg2006/saas-metrics-api/infrastructure/integrator/stripe"
	"github.com/vfg2006/saas-metrics-api/infrastructure/integrator/stripe/stripeclient"
	"github.com/vfg2006/saas-metrics-api/infrastructure/migration"
	"github.com/vfg2006/saas-metrics-api/infrastructure/repository"
	"github.com/vfg2006/saas-metrics-api/internal/api"
	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/scheduler"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/authenticating"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/calculating"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/ingesting"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/reporting"
	"github.com/vfg2006/saas-metrics-api/pkg/idempotency"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/metrics"
	"github.com/vfg2006/saas-metrics-api/pkg/throttle"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.L.Fatal(err)
	}

	log.Setup(cfg.App.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgConn := pgconn(ctx, cfg.Database)
	defer pgConn.Close()

	if cfg.Database.AutoMigrate {
		if err := migration.Up(pgConn.DB); err != nil {
			log.L.WithError(err).Fatal("main: migrations failed")
		}
	}

	clock := quartz.NewReal()
	collectors := metrics.New()

	cache, window, compactor := stores(ctx, cfg, clock)

	userRepo := repository.NewUserRepository(pgConn)
	workspaceRepo := repository.NewWorkspaceRepository(pgConn)
	connectionRepo := repository.NewConnectionRepository(pgConn)
	subscriptionRepo := repository.NewSubscriptionRepository(pgConn)
	snapshotRepo := repository.NewMetricSnapshotRepository(pgConn)

	billing := stripe.New(cfg, stripeclient.NewClient(cfg))

	authenticator := authenticating.NewService(userRepo, cfg, clock)
	calculator := calculating.NewService(cfg, connectionRepo, workspaceRepo, snapshotRepo, billing, window, collectors, clock)
	reporter := reporting.NewService(snapshotRepo, clock)

	ingester := ingesting.NewService(
		cfg,
		ingesting.NewVerifier(cfg),
		ingesting.NewRouter(ingesting.NewHandlers(connectionRepo, subscriptionRepo, clock)),
		cache,
		calculator,
		collectors,
		clock,
	)

	metricsSyncService := scheduler.NewMetricsSyncService(calculator, collectors, clock, cfg)
	if err := metricsSyncService.Start(ctx); err != nil {
		log.L.WithError(err).Error("main: metrics sync scheduler not started")
	}

	compactionService := scheduler.NewIdempotencyCompactionService(compactor, collectors, clock, cfg)
	if err := compactionService.Start(ctx); err != nil {
		log.L.WithError(err).Error("main: idempotency compaction scheduler not started")
	}

	server, err := api.New(cfg, api.Services{
		Authenticator:                authenticator,
		Ingester:                     ingester,
		Calculator:                   calculator,
		Reporter:                     reporter,
		MetricsSyncService:           metricsSyncService,
		IdempotencyCompactionService: compactionService,
		Collectors:                   collectors,
	})
	if err != nil {
		log.L.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		log.L.Error(err)
	}
}

// stores picks Redis-backed idempotency and throttling when REDIS_URL is set,
// process-local ones otherwise. Only the local cache needs compaction.
func stores(ctx context.Context, cfg *config.Config, clock quartz.Clock) (idempotency.Cache, throttle.Window, scheduler.Compactor) {
	if cfg.Redis.URL == "" {
		cache := idempotency.NewMemoryCache(cfg.Webhook.IdempotencyWindow, cfg.Webhook.IdempotencyCompactThreshold, clock)
		log.L.Info("main: using in-memory idempotency cache and recalculation throttle")
		return cache, throttle.NewMemoryWindow(cfg.Metrics.RecalculationWindow, 0), cache
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.L.WithError(err).Fatal("main: invalid REDIS_URL")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.L.WithError(err).Fatal("main: redis unreachable")
	}

	log.L.Info("main: using redis idempotency cache and recalculation throttle")
	return idempotency.NewRedisCache(client, cfg.Redis.KeyPrefix, cfg.Webhook.IdempotencyWindow),
		throttle.NewRedisWindow(client, cfg.Redis.KeyPrefix, cfg.Metrics.RecalculationWindow),
		nil
}

func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		log.L.WithError(err).Fatal("main: could not connect to postgres")
	}

	log.L.Info("main: postgres connection established")
	return conn
}
