package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"welth/internal/ai"
	"welth/internal/amqp"
	"welth/internal/config"
	welthlog "welth/internal/log"
	"welth/internal/notify"
	"welth/internal/services"
	"welth/internal/storage"
	"welth/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := welthlog.New(welthlog.Config{
		Level:     slog.LevelInfo,
		Component: welthlog.ComponentWorker,
	})
	welthlog.SetDefault(logger)

	logger.Info("Starting welth-worker")

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Initialize SQLite repository
	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Pick the notifier: Gmail when configured, otherwise in-memory so
	// alerts and reports are still generated and logged.
	var notifier notify.Notifier
	if cfg.GmailSender != "" {
		gmailNotifier, err := notify.NewGmailFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Gmail notifier", "error", err)
			os.Exit(1)
		}
		notifier = gmailNotifier
	} else {
		logger.Info("Gmail disabled - notifications stay in memory")
		notifier = notify.NewMemoryNotifier()
	}

	// Monthly report insights are optional; without an API key the
	// reports fall back to canned observations.
	var insights services.InsightsGenerator
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		insights = gemini
		logger.Info("Report insights enabled", "model", cfg.GeminiModel)
	}

	// Initialize AMQP client for consuming processing requests
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	processWorker := worker.NewProcessWorker(services.NewTransactionProcessor(repo))
	budgetMonitor := services.NewBudgetMonitor(repo, notifier)
	reportGenerator := services.NewReportGenerator(repo, notifier, insights)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start message consumption
	go func() {
		err := amqpClient.ConsumeProcessRecurring(ctx, func(msg *amqp.ProcessRecurringMessage) error {
			return processWorker.Handle(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	// Periodic budget checks, with an initial run on startup
	budgetTicker := time.NewTicker(cfg.BudgetCheckInterval)
	defer budgetTicker.Stop()

	logger.Info("Running initial budget check...")
	if alerts, err := budgetMonitor.CheckBudgets(ctx, time.Now().UTC()); err != nil {
		logger.Error("Initial budget check failed", "error", err)
	} else {
		logger.Info("Initial budget check complete", "alerts_sent", alerts)
	}

	// Monthly reports fire on the first day of each month. The daily
	// tick plus the month guard keeps the report from repeating when the
	// worker restarts mid-day.
	reportTicker := time.NewTicker(24 * time.Hour)
	defer reportTicker.Stop()
	var lastReportMonth time.Month

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-budgetTicker.C:
				alerts, err := budgetMonitor.CheckBudgets(ctx, now.UTC())
				if err != nil {
					logger.Error("Budget check failed", "error", err)
				} else {
					logger.Info("Budget check complete", "alerts_sent", alerts)
				}
			case now := <-reportTicker.C:
				now = now.UTC()
				if now.Day() != 1 || now.Month() == lastReportMonth {
					continue
				}
				sent, err := reportGenerator.GenerateMonthlyReports(ctx, now)
				if err != nil {
					logger.Error("Monthly report generation failed", "error", err)
					continue
				}
				lastReportMonth = now.Month()
				logger.Info("Monthly reports sent", "reports", sent)
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down welth-worker...")
	cancel()

	// Give in-flight handlers a moment to finish
	time.Sleep(2 * time.Second)
	logger.Info("Welth-worker shutdown complete")
}
