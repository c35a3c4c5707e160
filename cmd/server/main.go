package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobby-s-dev/weather-refresh/internal/api"
	"github.com/bobby-s-dev/weather-refresh/internal/config"
	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"github.com/bobby-s-dev/weather-refresh/internal/scheduler"
	"github.com/bobby-s-dev/weather-refresh/internal/screen"
	"github.com/bobby-s-dev/weather-refresh/internal/services"
	"github.com/bobby-s-dev/weather-refresh/internal/storage"
	"github.com/bobby-s-dev/weather-refresh/internal/ui"
	"github.com/bobby-s-dev/weather-refresh/pkg/client"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	level := zap.NewAtomicLevel()
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = level
	logger, _ := zapConfig.Build()
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Starting Weather Refresh Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		logger.Warn("Unknown log level, keeping info", zap.String("level", cfg.Server.LogLevel))
	}

	// Location fix store
	fixes, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open location store", zap.Error(err))
	}

	if seed := cfg.Location.Seed; seed != nil {
		fix := models.Fix{
			Coordinate: *seed,
			RecordedAt: time.Now().UTC(),
			Source:     "seed",
		}
		if err := fixes.SaveFix(context.Background(), fix); err != nil {
			logger.Fatal("Failed to record seed location", zap.Error(err))
		}
	}

	grants := services.NewGrants(cfg.Location.Permission == config.PermissionGranted)
	location := services.NewLocationSource(grants, fixes, logger)

	weather := client.NewOpenWeatherClient(
		cfg.WeatherAPI.OpenWeatherAPIKey,
		cfg.WeatherAPI.OpenWeatherURL,
		client.ClientConfig{
			Threshold:      cfg.CircuitBreaker.Threshold,
			BreakerTimeout: cfg.CircuitBreaker.Timeout,
		},
		logger,
	)

	// UI context
	loop := ui.NewLoop(16, logger)
	terminal := ui.NewTerminal(os.Stdout, logger)
	display := services.NewDisplayState(terminal, logger)

	refresher := scheduler.NewScheduler(location, weather, display, loop, logger)
	session := scheduler.NewSession(scheduler.DefaultInterval)

	gate := services.NewPermissionGate(grants, services.NewTerminalPrompter(os.Stdin, os.Stdout), logger)
	weatherScreen := screen.New(gate, refresher, terminal, loop, session, logger)

	var app *fiber.App
	if cfg.Server.Enabled {
		app = fiber.New(fiber.Config{
			ReadTimeout:           cfg.Server.ReadTimeout,
			WriteTimeout:          cfg.Server.WriteTimeout,
			JSONEncoder:           json.Marshal,
			ErrorHandler:          api.ErrorHandler,
			DisableStartupMessage: true,
		})

		handler := api.NewHandler(display, fixes, weatherScreen, refresher, logger)
		api.SetupRoutes(app, handler, logger)

		go func() {
			addr := ":" + cfg.Server.Port
			logger.Info("Starting server", zap.String("address", addr))

			if err := app.Listen(addr); err != nil {
				logger.Fatal("Failed to start server", zap.Error(err))
			}
		}()
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := weatherScreen.Create(ctx); err != nil {
		logger.Fatal("Failed to create weather screen", zap.Error(err))
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	weatherScreen.Destroy()
	stop()
	refresher.Wait()
	loop.Close()

	if app != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}

	if err := fixes.Close(); err != nil {
		logger.Error("Failed to close location store", zap.Error(err))
	}

	logger.Info("Stopped")
}

func openStore(cfg *config.Config, logger *zap.Logger) (storage.FixStore, error) {
	if cfg.Location.DBPath == "" {
		logger.Info("Using in-memory location store")
		return storage.NewMemoryStore(), nil
	}
	return storage.NewSQLite(cfg.Location.DBPath, logger)
}
