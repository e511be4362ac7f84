package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/omarvelez/fleetdriver-app/api/routes"
	"github.com/omarvelez/fleetdriver-app/internal/assignments"
	"github.com/omarvelez/fleetdriver-app/internal/changefeed"
	"github.com/omarvelez/fleetdriver-app/internal/countdown"
	"github.com/omarvelez/fleetdriver-app/internal/session"
	"github.com/omarvelez/fleetdriver-app/internal/viewmodel"
	"github.com/omarvelez/fleetdriver-app/pkg/config"
	"github.com/omarvelez/fleetdriver-app/pkg/logger"
	"github.com/omarvelez/fleetdriver-app/pkg/metrics"
	"github.com/omarvelez/fleetdriver-app/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "driverd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "driverd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var tokens session.TokenSource
	if cfg.Session.StaticToken != "" {
		tokens = session.Static(cfg.Session.StaticToken)
	} else {
		tokens, err = session.NewRedisSource(redisClient, cfg.App.DriverID)
		if err != nil {
			logg.Error(ctx, "failed to create session source", err)
			os.Exit(1)
		}
	}

	registry := prometheus.NewRegistry()
	lifecycleMetrics := metrics.NewLifecycleMetrics(registry)

	apiClient, err := assignments.NewAPIClient(cfg.API.BaseURL, tokens,
		assignments.WithTimeout(cfg.API.Timeout))
	if err != nil {
		logg.Error(ctx, "failed to create backend client", err)
		os.Exit(1)
	}

	repo, err := assignments.NewRepository(apiClient, logg, lifecycleMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create repository", err)
		os.Exit(1)
	}

	svc, err := assignments.NewService(assignments.ServiceParams{
		Repo:    repo,
		Client:  apiClient,
		Logger:  logg,
		Metrics: lifecycleMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create workflow service", err)
		os.Exit(1)
	}

	engine := countdown.NewEngine(countdown.WithInterval(cfg.Countdown.TickInterval))

	feed, err := changefeed.NewSubscriber(redisClient, cfg.ChangeFeed, logg, lifecycleMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create change feed subscriber", err)
		os.Exit(1)
	}

	vm, err := viewmodel.New(viewmodel.Params{
		Repo:     repo,
		Service:  svc,
		Engine:   engine,
		Feed:     viewmodel.RedisFeed{Subscriber: feed},
		Logger:   logg,
		DriverID: cfg.App.DriverID,
	})
	if err != nil {
		logg.Error(ctx, "failed to create view model", err)
		os.Exit(1)
	}
	defer vm.Close()

	if err := vm.Start(ctx); err != nil {
		// The daemon stays up on a failed initial refresh; the change feed
		// or a manual refresh can still bring the list in later.
		logg.Error(logg.WithDriverID(ctx, cfg.App.DriverID), "initial refresh failed", err)
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, vm, registry),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"driver_id": cfg.App.DriverID,
	})
	logg.Info(startCtx, "driverd started")

	select {
	case <-ctx.Done():
		logg.Info(context.Background(), "shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "status server stopped unexpectedly", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "status server shutdown failed", err)
	}
}
