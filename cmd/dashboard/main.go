package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/pulseboard/sentiment-monitor/internal/api"
	"github.com/pulseboard/sentiment-monitor/internal/config"
	"github.com/pulseboard/sentiment-monitor/internal/monitoring"
	"github.com/pulseboard/sentiment-monitor/internal/notifications"
	"github.com/pulseboard/sentiment-monitor/internal/scheduler"
	"github.com/pulseboard/sentiment-monitor/internal/sentiment"
	"github.com/pulseboard/sentiment-monitor/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting sentiment dashboard")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	clock := clockwork.NewRealClock()

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize blob storage: %v", err)
	}

	repo, err := openRepository(ctx, cfg, clock, blobs)
	if err != nil {
		logrus.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	// Initialize sentiment classifiers
	metrics := monitoring.NewMetrics()
	selector := sentiment.NewSelector(sentiment.SelectorOptions{
		Token:         cfg.HuggingFaceToken,
		DemoMode:      cfg.DemoMode,
		ModelURL:      cfg.HuggingFaceModelURL,
		Timeout:       cfg.SentimentTimeout,
		OnRemoteError: metrics.RecordRemoteFailure,
	}, repo, sentiment.NewHeuristic(sentiment.NewRandomSource()))

	// Initialize monitoring service
	monitoringService := monitoring.NewService(cfg, monitoring.Dependencies{
		Repository:    repo,
		Classifiers:   selector,
		Notifications: notifications.NewService(cfg),
		Blobs:         blobs,
		Sources:       monitoring.DefaultSources(cfg),
		Clock:         clock,
		Metrics:       metrics,
	})

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, monitoringService, true)
	if !cfg.NotificationsEnabled() {
		logrus.Warn("No notification channel configured, digests and alerts will only be logged")
	}
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      api.NewServer(cfg, monitoringService).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// openBlobStore uses Azure when a storage account is configured and the
// local data directory otherwise
func openBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.StorageAccount != "" {
		logrus.Infof("Using Azure blob container %s/%s", cfg.StorageAccount, cfg.StorageContainer)
		return storage.NewAzureBlobStore(ctx, cfg.StorageAccount, cfg.StorageContainer)
	}

	logrus.Infof("Using local blob directory %s", cfg.DataDir)
	return storage.NewFileStore(cfg.DataDir)
}

func openRepository(ctx context.Context, cfg *config.Config, clock clockwork.Clock, blobs storage.BlobStore) (storage.Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		repo, err := storage.NewSQLiteStore(cfg.SQLitePath, clock)
		if err != nil {
			return nil, err
		}

		existing, err := repo.ListComments(ctx, storage.CommentFilter{})
		if err != nil {
			repo.Close()
			return nil, err
		}
		if len(existing) == 0 {
			if err := storage.LoadSeed(ctx, repo, cfg.SeedFile); err != nil {
				repo.Close()
				return nil, err
			}
		}
		return repo, nil

	default:
		repo := storage.NewMemoryStore(clock, blobs)

		restored, err := repo.Restore(ctx)
		if err != nil {
			logrus.Warnf("Ignoring unreadable persisted state: %v", err)
		}
		if restored {
			logrus.Info("Restored state from previous run")
			return repo, nil
		}

		if err := storage.LoadSeed(ctx, repo, cfg.SeedFile); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	}
}
