package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/campuscove/internal/config"
	"github.com/joshua-takyi/campuscove/internal/connect"
	"github.com/joshua-takyi/campuscove/internal/container"
	"github.com/joshua-takyi/campuscove/internal/events"
	"github.com/joshua-takyi/campuscove/internal/helpers"
	"github.com/joshua-takyi/campuscove/internal/jobs"
	"github.com/joshua-takyi/campuscove/internal/logging"
	"github.com/joshua-takyi/campuscove/internal/models"
	"github.com/joshua-takyi/campuscove/internal/routes"
	"github.com/joshua-takyi/campuscove/internal/services"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	if err := run(); err != nil {
		slog.Error("CampusCove API server stopped", "error", err)
		os.Exit(1)
	}
}

// run owns every resource the server opens so deferred cleanup happens on
// both the fatal and the graceful path.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, logCloser := logging.New(logging.Options{
		Level: cfg.LogLevel,
		JSON:  cfg.IsProduction(),
		File:  cfg.LogFile,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)
	logger.Info("Starting CampusCove API server", "environment", cfg.Environment)

	mongoClient, err := connect.MongoDBConnect(context.Background(), cfg.MongoDBURI, cfg.MongoDBPassword)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		if err := connect.MongoDBDisconnect(mongoClient); err != nil {
			logger.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()
	logger.Info("Connected to MongoDB successfully", "database", cfg.MongoDBDatabase)

	repo := models.MongodbNewRepo(mongoClient, cfg.MongoDBDatabase)

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repo.EnsureIndexes(indexCtx); err != nil {
		logger.Warn("Failed to ensure indexes", "error", err)
	}
	cancelIndex()

	validator, err := helpers.NewTokenValidator(cfg.JWTSecret, cfg.JWKSURL)
	if err != nil {
		return fmt.Errorf("failed to initialize token validator: %w", err)
	}
	defer validator.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Event publishing disabled", "error", err)
		} else {
			publisher = amqpPublisher
			logger.Info("Publishing lifecycle events", "exchange", cfg.AMQPExchange)
		}
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Error closing event publisher", "error", err)
		}
	}()

	appContainer := container.NewContainer(cfg, logger, repo, validator, publisher, services.SystemClock{})

	loc, _ := cfg.SweepLocation()
	scheduler := jobs.NewScheduler(loc, logger)
	if err := scheduler.Register("subscription-expiry-sweep", cfg.SweepSchedule, appContainer.Sweeper.Run); err != nil {
		return fmt.Errorf("failed to schedule subscription sweep: %w", err)
	}
	scheduler.Start()
	if next, err := jobs.NextRun(cfg.SweepSchedule, time.Now(), loc); err == nil {
		logger.Info("Subscription sweep scheduled", "next_run", next)
	}

	router := routes.SetupRoutes(appContainer)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		logger.Info("Server is shutting down...")
	case err := <-serverErr:
		runErr = fmt.Errorf("server failed to start: %w", err)
	}

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := scheduler.Stop(ctx); err != nil {
		logger.Error("Scheduler did not stop cleanly", "error", err)
	}

	if runErr == nil {
		logger.Info("Server exited")
	}
	return runErr
}
