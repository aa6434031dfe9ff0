package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesaops/venue-backend/internal/accounts"
	"github.com/mesaops/venue-backend/internal/cron"
	"github.com/mesaops/venue-backend/internal/ledger"
	"github.com/mesaops/venue-backend/internal/orders"
	"github.com/mesaops/venue-backend/internal/reconciler"
	"github.com/mesaops/venue-backend/internal/tables"
	"github.com/mesaops/venue-backend/pkg/config"
	"github.com/mesaops/venue-backend/pkg/db"
	"github.com/mesaops/venue-backend/pkg/logger"
	"github.com/mesaops/venue-backend/pkg/metrics"
	"github.com/mesaops/venue-backend/pkg/migrate"
	"github.com/mesaops/venue-backend/pkg/redis"
	"github.com/mesaops/venue-backend/pkg/square"
)

const lockKeyFormat = "mesa:sweeper:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sweeper"

	logg = logger.New(logger.Options{
		ServiceName: "sweeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	ordersRepo := orders.NewRepository(gormDB)

	tablesSvc, err := tables.NewService(tables.NewRepository(gormDB), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tables service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, tablesSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	ledgerSvc, err := ledger.NewService(
		ledger.NewRepository(gormDB),
		cfg.Sweeper.StalenessWindow,
		cfg.Sweeper.MaxAttempts,
		cfg.Sweeper.Limit,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	accountsSvc, err := accounts.NewService(accounts.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	reconcilerSvc, err := reconciler.NewService(
		ledgerSvc,
		ordersRepo,
		ordersSvc,
		accountsSvc,
		squareClient,
		reconciler.Config{
			FallbackWindow: cfg.Reconciler.FallbackWindow,
			VerifySessions: cfg.Reconciler.VerifySessions,
		},
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler service", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewSweepJob(cron.SweepJobParams{
		Logger:     logg,
		Reconciler: reconcilerSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Sweeper.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting payment event sweeper")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweeper stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sweeper shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
