package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lukamarin/gearbox-backend/api/routes"
	"github.com/lukamarin/gearbox-backend/internal/activity"
	"github.com/lukamarin/gearbox-backend/internal/catalog"
	"github.com/lukamarin/gearbox-backend/internal/inventory"
	"github.com/lukamarin/gearbox-backend/internal/jobs"
	"github.com/lukamarin/gearbox-backend/internal/notifications"
	"github.com/lukamarin/gearbox-backend/pkg/config"
	"github.com/lukamarin/gearbox-backend/pkg/db"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
	"github.com/lukamarin/gearbox-backend/pkg/metrics"
	"github.com/lukamarin/gearbox-backend/pkg/migrate"
	"github.com/lukamarin/gearbox-backend/pkg/redis"
)

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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	inventoryMetrics := metrics.NewInventoryMetrics(registry)

	recorder := activity.NewLogRecorder(logg)
	partsRepo := inventory.NewRepository(dbClient)

	notificationsService := notifications.NewService(
		notifications.NewRepository(dbClient),
		redisClient,
		cfg.Inventory.LowStockAlertTTL,
		logg,
	)
	inventoryService := inventory.NewService(dbClient, partsRepo, notificationsService, recorder, inventoryMetrics, logg)
	catalogService := catalog.NewService(dbClient, catalog.NewRepository(dbClient), partsRepo, recorder, logg)
	jobsService := jobs.NewService(
		dbClient,
		jobs.NewRepository(dbClient),
		partsRepo,
		inventory.NewLedger(inventoryMetrics),
		notificationsService,
		recorder,
		logg,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			catalogService,
			inventoryService,
			jobsService,
			notificationsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
