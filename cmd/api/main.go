package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/mesaops/venue-backend/api/controllers"
	"github.com/mesaops/venue-backend/api/routes"
	"github.com/mesaops/venue-backend/internal/accounts"
	"github.com/mesaops/venue-backend/internal/ledger"
	"github.com/mesaops/venue-backend/internal/orders"
	"github.com/mesaops/venue-backend/internal/reconciler"
	"github.com/mesaops/venue-backend/internal/tables"
	"github.com/mesaops/venue-backend/pkg/config"
	"github.com/mesaops/venue-backend/pkg/db"
	"github.com/mesaops/venue-backend/pkg/logger"
	"github.com/mesaops/venue-backend/pkg/migrate"
	"github.com/mesaops/venue-backend/pkg/redis"
	"github.com/mesaops/venue-backend/pkg/square"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	router := routes.NewRouter(routes.Dependencies{
		Config: cfg,
		Logger: logg,
		Pingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		SquareClient: squareClient,
		Orders:       ordersSvc,
		Tables:       tablesSvc,
		Ledger:       ledgerSvc,
		Reconciler:   reconcilerSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
