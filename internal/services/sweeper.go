package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"welth/internal/storage"
)

// RecurringPublisher dispatches one processing request per due
// transaction. Delivery is at-least-once; the processor's due-check
// compensates for duplicates.
type RecurringPublisher interface {
	PublishProcessRecurring(ctx context.Context, transactionID, userID string) error
}

// RecurringSweeper is the time-driven trigger: it enumerates due
// recurring transactions and hands each one to the work queue.
type RecurringSweeper struct {
	store     *storage.Repository
	publisher RecurringPublisher
}

func NewRecurringSweeper(store *storage.Repository, publisher RecurringPublisher) *RecurringSweeper {
	return &RecurringSweeper{store: store, publisher: publisher}
}

// Sweep publishes one processing message per due transaction and returns
// how many were triggered. Per-item publish failures are logged and
// skipped; the next sweep picks those transactions up again because they
// stay due until a successful commit.
func (s *RecurringSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.FindDueRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find due recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Sweeping recurring transactions",
		"due", len(due),
		"sweep_date", now.Format("2006-01-02"))

	triggered := 0
	for _, t := range due {
		if err := s.publisher.PublishProcessRecurring(ctx, t.ID, t.UserID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish processing request",
				"transaction_id", t.ID,
				"user_id", t.UserID,
				"error", err)
			continue
		}
		triggered++
	}

	slog.InfoContext(ctx, "Recurring sweep complete",
		"due", len(due),
		"triggered", triggered)

	return triggered, nil
}
