package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/pawfinderz-backend/api/routes"
	"github.com/angelmondragon/pawfinderz-backend/internal/capabilities"
	"github.com/angelmondragon/pawfinderz-backend/internal/emailconfig"
	"github.com/angelmondragon/pawfinderz-backend/internal/helpers"
	"github.com/angelmondragon/pawfinderz-backend/internal/notifications"
	"github.com/angelmondragon/pawfinderz-backend/internal/ownership"
	"github.com/angelmondragon/pawfinderz-backend/internal/pets"
	"github.com/angelmondragon/pawfinderz-backend/internal/placements"
	"github.com/angelmondragon/pawfinderz-backend/internal/relationships"
	"github.com/angelmondragon/pawfinderz-backend/internal/settings"
	"github.com/angelmondragon/pawfinderz-backend/internal/transfers"
	"github.com/angelmondragon/pawfinderz-backend/internal/users"
	"github.com/angelmondragon/pawfinderz-backend/pkg/config"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
	"github.com/angelmondragon/pawfinderz-backend/pkg/metrics"
	"github.com/angelmondragon/pawfinderz-backend/pkg/migrate"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/pawfinderz-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(cfg, logg, dbClient, redisClient, metrics.NewWorkflowMetrics(registry))
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Infra{
			DB:       dbClient,
			Redis:    redisClient,
			Gatherer: registry,
		}, *services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

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
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, workflowMetrics *metrics.WorkflowMetrics) (*routes.Services, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	caps := capabilities.NewService(nil)

	userRepo := users.NewRepository(conn)
	userService, err := users.NewService(userRepo)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}

	ownershipService, err := ownership.NewService(ownership.NewRepository(conn), logg, workflowMetrics)
	if err != nil {
		return nil, fmt.Errorf("ownership: %w", err)
	}

	relationshipService, err := relationships.NewService(relationships.ServiceParams{
		Repo:          relationships.NewRepository(conn),
		TxRunner:      dbClient,
		Outbox:        emitter,
		Passwords:     cfg.Password,
		InvitationTTL: cfg.Invitations.DefaultTTL,
		Metrics:       workflowMetrics,
		Logger:        logg,
	})
	if err != nil {
		return nil, fmt.Errorf("relationships: %w", err)
	}

	petService, err := pets.NewService(pets.ServiceParams{
		Repo:          pets.NewRepository(conn),
		TxRunner:      dbClient,
		Capabilities:  caps,
		Ownership:     ownershipService,
		Relationships: relationshipService,
	})
	if err != nil {
		return nil, fmt.Errorf("pets: %w", err)
	}

	helperService, err := helpers.NewService(helpers.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("helpers: %w", err)
	}

	placementService, err := placements.NewService(placements.ServiceParams{
		Repo:          placements.NewRepository(conn),
		TxRunner:      dbClient,
		Outbox:        emitter,
		Capabilities:  caps,
		Pets:          petService,
		Helpers:       helperService,
		Relationships: relationshipService,
		Metrics:       workflowMetrics,
		Logger:        logg,
	})
	if err != nil {
		return nil, fmt.Errorf("placements: %w", err)
	}

	transferService, err := transfers.NewService(transfers.ServiceParams{
		Repo:          transfers.NewRepository(conn),
		TxRunner:      dbClient,
		Outbox:        emitter,
		Placements:    placementService,
		Ownership:     ownershipService,
		Relationships: relationshipService,
		Metrics:       workflowMetrics,
		Logger:        logg,
	})
	if err != nil {
		return nil, fmt.Errorf("transfers: %w", err)
	}

	notificationService, err := notifications.NewService(notifications.ServiceParams{
		Repo:    notifications.NewRepository(conn),
		Users:   userRepo,
		AppURL:  cfg.Notifications.AppURL,
		Metrics: workflowMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}

	settingsService, err := settings.NewService(settings.NewRepository(conn), settings.NewRedisCache(redisClient), cfg.Settings.CacheTTL, logg)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	emailConfigService, err := emailconfig.NewService(emailconfig.NewRepository(conn), dbClient, logg, cfg.Notifications.DefaultFrom)
	if err != nil {
		return nil, fmt.Errorf("email configurations: %w", err)
	}

	return &routes.Services{
		Users:         userService,
		Capabilities:  caps,
		Pets:          petService,
		Helpers:       helperService,
		Placements:    placementService,
		Transfers:     transferService,
		Invitations:   relationshipService,
		Notifications: notificationService,
		Settings:      settingsService,
		EmailConfigs:  emailConfigService,
	}, nil
}
