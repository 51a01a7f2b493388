// Package main is the entry point for the Stride activity points tracker.
// The application syncs daily step counts and exercise sessions from Garmin
// Connect, converts them into activity points, and serves the results over
// a small HTTP API.
//
// Startup sequence:
// 1. Load configuration from environment variables (.env file)
// 2. Initialize structured logging
// 3. Open the activity database and apply migrations
// 4. Wire the Garmin client, points repository, syncer and service
// 5. Start the HTTP server
// 6. Run a catch-up sync in the background
// 7. Register scheduled jobs (nightly sync, nightly backup)
// 8. Wait for shutdown signal and stop gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/strideapp/stride/internal/clients/garmin"
	"github.com/strideapp/stride/internal/config"
	"github.com/strideapp/stride/internal/database"
	"github.com/strideapp/stride/internal/events"
	"github.com/strideapp/stride/internal/modules/points"
	"github.com/strideapp/stride/internal/reliability"
	"github.com/strideapp/stride/internal/scheduler"
	"github.com/strideapp/stride/internal/server"
	"github.com/strideapp/stride/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Stride")

	// Activity database (daily steps, points, sessions)
	activityDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "activity.db"),
		Name: "activity",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open activity database")
	}
	defer activityDB.Close()

	if err := activityDB.Migrate(points.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate activity database")
	}

	// Event bus carries sync progress to SSE clients
	eventBus := events.NewBus()

	// Garmin Connect client and the adapter that shapes its responses
	// into daily metrics
	garminClient := garmin.NewClient(garmin.Config{
		BaseURL:     cfg.Garmin.BaseURL,
		Email:       cfg.Garmin.Email,
		Password:    cfg.Garmin.Password,
		SessionFile: cfg.Garmin.SessionFile,
		Timeout:     cfg.Garmin.Timeout,
	}, log)
	garminAdapter := garmin.NewAdapter(garminClient, log)

	// Points module: repository, sync orchestrator, service
	pointsRepo := points.NewRepository(activityDB.Conn(), log)
	syncer := points.NewSyncer(points.SyncerConfig{
		Repo:    pointsRepo,
		Fetcher: garminAdapter,
		Bus:     eventBus,
		Epoch:   cfg.SyncEpoch,
		Log:     log,
	})
	pointsService := points.NewService(pointsRepo, syncer, log)

	// R2 backups (optional - most installs run without them)
	var backupService *reliability.BackupService
	if cfg.Backup.Enabled {
		r2Client, err := reliability.NewR2Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 client")
		}
		backupService = reliability.NewBackupService(activityDB, r2Client, cfg.DataDir, cfg.Backup.RetentionDays, log)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("R2 backups enabled")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Log:           log,
		Config:        cfg,
		ActivityDB:    activityDB,
		EventBus:      eventBus,
		PointsService: pointsService,
		GarminClient:  garminClient,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Catch-up sync on startup: backfills any days missed while the
	// service was down. Runs in the background so startup stays fast.
	if err := pointsService.StartSync(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Startup sync not started")
	}

	// Scheduled jobs: nightly sync shortly after midnight, nightly backup
	// once the sync has settled
	sched := scheduler.New(log)

	syncJob := scheduler.NewDailySyncJob(scheduler.DailySyncJobConfig{
		Log:     log,
		Service: pointsService,
		Timeout: 30 * time.Minute,
	})
	if err := sched.Register(cfg.SyncSchedule, syncJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule daily sync job")
	}

	if backupService != nil {
		backupJob := scheduler.NewBackupJob(scheduler.BackupJobConfig{
			Log:    log,
			Backup: backupService,
		})
		if err := sched.Register(cfg.BackupSchedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule backup job")
		}
	}

	sched.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Stride stopped")
}
