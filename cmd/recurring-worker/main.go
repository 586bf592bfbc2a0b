package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"welth/internal/amqp"
	"welth/internal/config"
	welthlog "welth/internal/log"
	"welth/internal/services"
	"welth/internal/storage"
)

// inlineProcessor stands in for the message queue when AMQP is not
// available: due transactions are processed in this process instead of
// being dispatched to welth-worker.
type inlineProcessor struct {
	processor *services.TransactionProcessor
}

func (p *inlineProcessor) PublishProcessRecurring(ctx context.Context, transactionID, userID string) error {
	_, err := p.processor.ProcessDue(ctx, transactionID, userID)
	return err
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := welthlog.New(welthlog.Config{
		Level:     slog.LevelInfo,
		Component: welthlog.ComponentSweeper,
	})
	welthlog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

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

	// Initialize AMQP client for publishing processing requests.
	// welth-worker consumes these and creates the occurrences.
	var publisher services.RecurringPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, processing due transactions inline", "error", err)
			publisher = &inlineProcessor{processor: services.NewTransactionProcessor(repo)}
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized - due transactions dispatch to welth-worker")
		}
	} else {
		logger.Info("AMQP disabled - processing due transactions inline")
		publisher = &inlineProcessor{processor: services.NewTransactionProcessor(repo)}
	}

	sweeper := services.NewRecurringSweeper(repo, publisher)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring sweeper configured",
		"interval", cfg.SweepInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	// Run initial sweep on startup
	logger.Info("Running initial recurring sweep...")
	if count, err := sweeper.Sweep(ctx, time.Now().UTC()); err != nil {
		logger.Error("Initial sweep failed", "error", err)
	} else {
		logger.Info("Initial sweep complete", "triggered", count)
	}

	// Start periodic sweeps
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				count, err := sweeper.Sweep(ctx, now.UTC())
				if err != nil {
					logger.Error("Periodic sweep failed", "error", err)
				} else {
					logger.Info("Periodic sweep complete",
						"triggered", count,
						"next_check", now.Add(cfg.SweepInterval).Format("15:04:05"))
				}
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

	logger.Info("Shutting down recurring-worker...")
	cancel()

	logger.Info("Recurring-worker shutdown complete")
}
