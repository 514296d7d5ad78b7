package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lysyi3m/content-pilot/app/ai"
	"github.com/lysyi3m/content-pilot/app/api"
	"github.com/lysyi3m/content-pilot/app/cfg"
	"github.com/lysyi3m/content-pilot/app/database"
	"github.com/lysyi3m/content-pilot/app/events"
	"github.com/lysyi3m/content-pilot/app/generator"
	"github.com/lysyi3m/content-pilot/app/pilot"
	"github.com/lysyi3m/content-pilot/app/publish"
	"github.com/lysyi3m/content-pilot/app/reference"
)

func main() {
	// A local .env never overrides the process environment
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env")
	}

	c, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if c.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Content Pilot server", "version", c.Version)

	db, err := database.NewConnection(c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrationVersion, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", migrationVersion, "dirty", dirty)

	directionRepo := database.NewDirectionRepository(db)
	topicRepo := database.NewTopicRepository(db)
	articleRepo := database.NewArticleRepository(db)
	taskRepo := database.NewTaskRepository(db)
	accountRepo := database.NewAccountRepository(db)
	notificationRepo := database.NewNotificationRepository(db)
	storyRepo := database.NewStoryRepository(db)

	// Tasks and story jobs left running by a previous process are dead;
	// fail them now so operators see them instead of a stuck "running".
	if failed, err := taskRepo.FailInterruptedTasks("interrupted by restart"); err != nil {
		slog.Warn("Failed to sweep interrupted tasks", "error", err)
	} else if failed > 0 {
		slog.Info("Failed interrupted publish tasks", "count", failed)
	}
	if failed, err := storyRepo.FailInterruptedJobs("interrupted by restart"); err != nil {
		slog.Warn("Failed to sweep interrupted story jobs", "error", err)
	} else if failed > 0 {
		slog.Info("Failed interrupted story jobs", "count", failed)
	}

	if err := pilot.SyncSeedDirections(c.DirectionsDir, directionRepo); err != nil {
		slog.Error("Failed to sync seed directions", "dir", c.DirectionsDir, "error", err)
		os.Exit(1)
	}

	bus := events.NewBus(0, 0)
	defer bus.Close()

	notifier := events.NewNotifier(bus, notificationRepo)
	notifier.Start()
	defer notifier.Stop()

	registry := ai.NewRegistry()
	if registry.Count() == 0 {
		slog.Error("No AI providers configured, set at least one provider API key")
		os.Exit(1)
	}
	slog.Info("AI providers configured", "count", registry.Count())

	gen := generator.NewGenerator(registry, articleRepo, storyRepo, bus)
	source := reference.NewSource(&http.Client{Timeout: 30 * time.Second})

	// The publish timeout is enforced per attempt through the context, so
	// the publisher's own client carries no hard deadline.
	publisher, err := publish.NewPublisher(&http.Client{})
	if err != nil {
		slog.Error("Failed to build publisher", "error", err)
		os.Exit(1)
	}
	slog.Info("Publisher configured", "mode", c.PublisherMode)

	quota := publish.NewQuota(accountRepo)
	queue := publish.NewQueue(taskRepo, articleRepo, bus)

	worker := publish.NewWorker(taskRepo, articleRepo, accountRepo, quota, publisher, bus)
	worker.Start()
	defer worker.Stop()

	p := pilot.NewPilot(directionRepo, topicRepo, accountRepo, gen, source, queue, bus)
	p.Start()
	defer p.Stop()

	apiHandler := api.NewHandler(directionRepo, topicRepo, articleRepo, taskRepo,
		accountRepo, notificationRepo, gen, p, queue, registry, bus)
	router := api.NewServer(apiHandler, c.APIAccessKey)

	// No write timeout: the event stream holds its connection open
	httpServer := &http.Server{
		Addr:        ":" + c.Port,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Content Pilot started",
		"pilot_interval_minutes", c.PilotInterval,
		"publish_workers", c.WorkerCount,
		"publish_scan_seconds", c.PublishScanInterval)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server failed", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}

	// Pilot, worker, notifier and bus are stopped via the deferred calls,
	// in that order, before the database connection closes.
	slog.Info("Shutdown complete")
}
