package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notification_platform/internal/app"
	"notification_platform/internal/domain/channel"
	"notification_platform/internal/infra/config"
	idb "notification_platform/internal/infra/database"
	"notification_platform/internal/infra/email"
	"notification_platform/internal/infra/logger"
	"notification_platform/internal/infra/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Component("main")

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Initialize Repositories
	executionRepo := idb.NewPostgresExecutionRepository(db)
	channelRepo := idb.NewPostgresChannelRepository(db)

	// Initialize Email Dispatcher and verify the transport is reachable.
	// A failed dial is not fatal: per-send failures are already recorded in
	// the delivery log, so the engine starts and lets deliveries fail loudly.
	emailClient := email.NewClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.DispatchTimeout)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), cfg.DispatchTimeout)
	if err := emailClient.Ping(pingCtx); err != nil {
		log.WithError(err).Warn("SMTP server not reachable at startup")
	} else {
		log.Info("SMTP transport verified")
	}
	cancelPing()

	// Resolve the email channel from the registry; delivery log rows
	// reference it, so the engine cannot run without it.
	resolveCtx, cancelResolve := context.WithTimeout(context.Background(), 10*time.Second)
	emailChannel, err := channelRepo.GetByName(resolveCtx, channel.NameEmail)
	cancelResolve()
	if err != nil {
		log.Fatalf("FATAL: Could not resolve email channel from registry: %v", err)
	}

	// Initialize ExecutorService and Worker
	executor := app.NewExecutorService(executionRepo, emailClient, emailChannel.ID, logger.Component("executor"))
	worker := scheduler.NewWorker(executor, logger.Component("worker"), cfg.TickCronSpec, cfg.PassTimeout)
	if err := worker.Start(); err != nil {
		log.Fatalf("FATAL: Could not start schedule worker: %v", err)
	}

	log.Info("Engine setup complete, worker running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down engine...")
	worker.Stop()
	// db.Close() is handled by defer
	log.Info("Engine shut down gracefully")
}
