package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"yoyaku/cmd/consumers/jobs"
	"yoyaku/internal/config"
	"yoyaku/internal/consumers"
	"yoyaku/internal/database"
	"yoyaku/internal/external"
	"yoyaku/internal/logger"
	"yoyaku/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	cfg.NATS.ClientID = "yoyaku-consumers"
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	log := logger.Get()
	log.Info("Starting consumers service...")

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		logger.Fatal("Failed to create consumer service", "error", err)
	}

	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	// The reconciliation job runs in this process: it shares nothing with
	// the interactive checkout and may be slow without consequence.
	jobDB, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect job database", "error", err)
	}
	jobRepos := repository.NewRepositories(jobDB)
	reconciliation := jobs.NewPaymentReconciliationJob(jobRepos.Payments, external.NewPaymentClient(cfg.Payment))

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	reconciliation.Start(jobCtx)

	log.Info("Consumers service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down consumers service...")

	reconciliation.Stop()
	cancelJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(ctx); err != nil {
		log.Error("Error during shutdown", "error", err)
	}
	if err := jobDB.Close(); err != nil {
		log.Error("Error closing job database", "error", err)
	}

	log.Info("Consumers service stopped")
}
