package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"welth/internal/core"
	"welth/internal/storage"
)

// ProcessResult reports what a ProcessDue call did.
type ProcessResult string

const (
	// ResultProcessed means an occurrence was created and the template advanced.
	ResultProcessed ProcessResult = "processed"
	// ResultNoOp means the transaction was not due (or another processor
	// got there first) and nothing was written.
	ResultNoOp ProcessResult = "noop"
)

// TransactionProcessor materializes due occurrences of recurring
// transaction templates and keeps the owning account balance consistent.
type TransactionProcessor struct {
	store *storage.Repository
}

func NewTransactionProcessor(store *storage.Repository) *TransactionProcessor {
	return &TransactionProcessor{store: store}
}

// ProcessDue runs one processing attempt for the transaction scoped to
// (transactionID, userID). The whole attempt is a single database
// transaction: occurrence insert, balance update and template advance
// commit together or not at all. Redundant invocations are safe; once a
// commit lands the due-check turns false and later calls are no-ops.
func (p *TransactionProcessor) ProcessDue(ctx context.Context, transactionID, userID string) (ProcessResult, error) {
	now := time.Now().UTC()
	result := ResultNoOp

	err := p.store.RunTx(ctx, func(q *storage.Queries) error {
		t, err := q.GetTransaction(ctx, transactionID, userID)
		if err != nil {
			return err
		}

		if !isTransactionDue(*t, now) {
			return nil
		}

		next, err := NextRecurringDate(now, t.RecurringInterval)
		if err != nil {
			return err
		}

		// Compare-and-commit guard: the advance is conditional on the
		// next_recurring_date we loaded. If a concurrent processor already
		// advanced the template this matches zero rows and we back off
		// without writing anything else.
		advanced, err := q.AdvanceRecurring(ctx, t.ID, t.NextRecurringDate, now, next)
		if err != nil {
			return err
		}
		if !advanced {
			slog.InfoContext(ctx, "Recurring template already advanced by concurrent processor",
				"transaction_id", t.ID)
			return nil
		}

		occurrence := core.Transaction{
			ID:          uuid.NewString(),
			UserID:      t.UserID,
			AccountID:   t.AccountID,
			Type:        t.Type,
			Amount:      t.Amount,
			Date:        now,
			Description: t.Description + " (Recurring)",
			Category:    t.Category,
			Status:      core.StatusCompleted,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := q.InsertTransaction(ctx, occurrence); err != nil {
			return err
		}

		if err := q.ApplyBalanceDelta(ctx, t.AccountID, occurrence.SignedCents()); err != nil {
			// ErrInsufficientFunds rolls back the occurrence and the
			// advance; the template stays due and is retried on a later
			// sweep once the balance allows it.
			return err
		}

		result = ResultProcessed
		slog.InfoContext(ctx, "Processed recurring transaction",
			"transaction_id", t.ID,
			"occurrence_id", occurrence.ID,
			"amount_cents", t.Amount.Cents,
			"type", t.Type,
			"next_recurring_date", next.Format("2006-01-02"))
		return nil
	})
	if err != nil {
		return ResultNoOp, err
	}
	return result, nil
}

// isTransactionDue reports whether a recurring template should spawn an
// occurrence now: never processed, or next occurrence time has arrived.
func isTransactionDue(t core.Transaction, now time.Time) bool {
	if !t.IsRecurring {
		return false
	}
	if t.LastProcessed == nil {
		return true
	}
	return t.NextRecurringDate != nil && !t.NextRecurringDate.After(now)
}
