package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/surf-forecast/internal/api/http"
	"github.com/i474232898/surf-forecast/internal/config"
	"github.com/i474232898/surf-forecast/internal/geocode"
	"github.com/i474232898/surf-forecast/internal/scheduler"
	"github.com/i474232898/surf-forecast/internal/store"
	"github.com/i474232898/surf-forecast/internal/surf"
	"github.com/i474232898/surf-forecast/internal/surf/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	zl, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Report store with configured retention.
	var reportStore surf.Store
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := store.OpenSQLite(cfg.SQLitePath, cfg.StoreMaxHistory, cfg.StoreMaxAge)
		if err != nil {
			zl.Fatal("failed to open sqlite store", zap.String("path", cfg.SQLitePath), zap.Error(err))
		}
		defer db.Close()
		reportStore = db
	default:
		reportStore = store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	}

	// Providers with resilience (circuit breaker, optional backoff).
	spitcastOpts := []providers.SpitcastOption{
		providers.WithSpitcastDays(cfg.SpitcastDays),
		providers.WithSpotCache(providers.NewSpotCache(cfg.SpotCacheTTL, time.Now)),
	}
	if cfg.SpitcastBaseURL != "" {
		spitcastOpts = append(spitcastOpts, providers.WithSpitcastBaseURL(cfg.SpitcastBaseURL))
	}
	spitcast := providers.NewSpitcastProvider(httpClient, zl, spitcastOpts...)

	var stormglassOpts []providers.StormglassOption
	if cfg.StormglassBaseURL != "" {
		stormglassOpts = append(stormglassOpts, providers.WithStormglassBaseURL(cfg.StormglassBaseURL))
	}
	stormglass := providers.NewStormglassProvider(httpClient, cfg.StormglassAPIKey, zl, stormglassOpts...)
	if !stormglass.Configured() {
		zl.Warn("STORMGLASS_API_KEY not set; stormglass forecasts are disabled")
	}

	serviceOpts := []surf.Option{surf.WithStormglassDays(cfg.StormglassDays)}
	if cfg.GeocoderAPIKey != "" {
		serviceOpts = append(serviceOpts, surf.WithGeocoder(geocode.NewGoogle(cfg.GeocoderAPIKey)))
	}

	// Core service orchestrating providers and store.
	service := surf.NewService(reportStore, spitcast, stormglass, zl, serviceOpts...)

	// Scheduler that periodically fetches and stores forecasts.
	sched := scheduler.New(cfg.Locations, cfg.FetchInterval, service, zl)
	if err := sched.Start(); err != nil {
		zl.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "surf-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * cfg.HTTPTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "surf-forecast",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, zl)

	go func() {
		zl.Info("listening", zap.String("port", cfg.Port), zap.Int("locations", len(cfg.Locations)))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Warn("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zl.Error("error during shutdown", zap.Error(err))
	}
}
