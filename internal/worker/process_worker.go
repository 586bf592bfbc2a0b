// Package worker hosts the background consumers: recurring transaction
// processing off the queue plus the periodic budget and report loops.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"welth/internal/amqp"
	"welth/internal/core"
	"welth/internal/services"
)

// perUserConcurrency caps how many recurring transactions of one user
// may be in flight at once, so a user with many templates cannot starve
// everyone else.
const perUserConcurrency = 10

// ProcessWorker consumes recurring processing requests and runs them
// through the transaction processor.
type ProcessWorker struct {
	processor *services.TransactionProcessor

	mu    sync.Mutex
	users map[string]*semaphore.Weighted
}

func NewProcessWorker(processor *services.TransactionProcessor) *ProcessWorker {
	return &ProcessWorker{
		processor: processor,
		users:     make(map[string]*semaphore.Weighted),
	}
}

// Handle processes one queued request. A nil return acknowledges the
// message; an error requeues it. Permanent failures (unknown
// transaction, bad interval, insufficient funds) are logged and
// acknowledged so they do not loop in the queue: the first two cannot
// succeed on retry and the last stays due and is retried by the next
// sweep instead.
func (w *ProcessWorker) Handle(ctx context.Context, msg *amqp.ProcessRecurringMessage) error {
	sem := w.userSemaphore(msg.UserID)
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer sem.Release(1)

	result, err := w.processor.ProcessDue(ctx, msg.TransactionID, msg.UserID)
	if err != nil {
		if isPermanent(err) {
			slog.ErrorContext(ctx, "Dropping unprocessable recurring request",
				"transaction_id", msg.TransactionID,
				"user_id", msg.UserID,
				"error", err)
			return nil
		}
		return err
	}

	if result == services.ResultNoOp {
		slog.InfoContext(ctx, "Recurring request was a no-op",
			"transaction_id", msg.TransactionID,
			"user_id", msg.UserID)
	}
	return nil
}

func (w *ProcessWorker) userSemaphore(userID string) *semaphore.Weighted {
	w.mu.Lock()
	defer w.mu.Unlock()
	sem, ok := w.users[userID]
	if !ok {
		sem = semaphore.NewWeighted(perUserConcurrency)
		w.users[userID] = sem
	}
	return sem
}

func isPermanent(err error) bool {
	return errors.Is(err, core.ErrNotFound) ||
		errors.Is(err, core.ErrInvalidInterval) ||
		errors.Is(err, core.ErrInsufficientFunds)
}
