package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"welth/internal/core"
	"welth/internal/storage"
)

// TransactionService owns user-driven transaction writes. Every mutation
// keeps the owning account balance in step with the ledger inside one
// database transaction.
type TransactionService struct {
	store *storage.Repository
}

func NewTransactionService(store *storage.Repository) *TransactionService {
	return &TransactionService{store: store}
}

// CreateTransactionInput carries the caller-supplied fields of a new
// transaction.
type CreateTransactionInput struct {
	AccountID         string
	Type              core.TransactionType
	Amount            core.Money
	Date              time.Time
	Description       string
	Category          string
	ReceiptURL        string
	IsRecurring       bool
	RecurringInterval core.RecurringInterval
}

// Create records a transaction and applies its amount to the account
// balance. Recurring templates get their first next occurrence date
// computed from the transaction date at creation time.
func (s *TransactionService) Create(ctx context.Context, userID string, in CreateTransactionInput) (*core.Transaction, error) {
	now := time.Now().UTC()
	t := core.Transaction{
		ID:                uuid.NewString(),
		UserID:            userID,
		AccountID:         in.AccountID,
		Type:              in.Type,
		Amount:            in.Amount,
		Date:              in.Date,
		Description:       in.Description,
		Category:          in.Category,
		ReceiptURL:        in.ReceiptURL,
		IsRecurring:       in.IsRecurring,
		RecurringInterval: in.RecurringInterval,
		Status:            core.StatusCompleted,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if t.IsRecurring {
		next, err := NextRecurringDate(t.Date, t.RecurringInterval)
		if err != nil {
			return nil, err
		}
		t.NextRecurringDate = &next
	}

	err := s.store.RunTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetAccount(ctx, t.AccountID, userID); err != nil {
			return err
		}
		if err := q.ApplyBalanceDelta(ctx, t.AccountID, t.SignedCents()); err != nil {
			return err
		}
		return q.InsertTransaction(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", t.ID,
		"user_id", userID,
		"account_id", t.AccountID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"is_recurring", t.IsRecurring)

	return &t, nil
}

// Update replaces the mutable fields of an existing transaction and
// reconciles the account balance with the difference between the old and
// new amounts. Moving a transaction between accounts is not supported.
func (s *TransactionService) Update(ctx context.Context, userID, transactionID string, in CreateTransactionInput) (*core.Transaction, error) {
	var updated core.Transaction

	err := s.store.RunTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetTransaction(ctx, transactionID, userID)
		if err != nil {
			return err
		}

		updated = *old
		updated.Type = in.Type
		updated.Amount = in.Amount
		updated.Date = in.Date
		updated.Description = in.Description
		updated.Category = in.Category
		updated.ReceiptURL = in.ReceiptURL
		updated.IsRecurring = in.IsRecurring
		updated.RecurringInterval = in.RecurringInterval
		updated.UpdatedAt = time.Now().UTC()
		if err := updated.Validate(); err != nil {
			return err
		}

		if updated.IsRecurring {
			next, err := NextRecurringDate(updated.Date, updated.RecurringInterval)
			if err != nil {
				return err
			}
			updated.NextRecurringDate = &next
		} else {
			updated.NextRecurringDate = nil
		}

		delta := updated.SignedCents() - old.SignedCents()
		if delta != 0 {
			if err := q.ApplyBalanceDelta(ctx, old.AccountID, delta); err != nil {
				return err
			}
		}
		return q.UpdateTransaction(ctx, updated)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"transaction_id", transactionID,
		"user_id", userID)

	return &updated, nil
}

// Delete removes the given transactions and reverses their balance
// effect, all in one atomic unit. A single missing ID aborts the whole
// batch.
func (s *TransactionService) Delete(ctx context.Context, userID string, transactionIDs []string) error {
	err := s.store.RunTx(ctx, func(q *storage.Queries) error {
		for _, id := range transactionIDs {
			t, err := q.GetTransaction(ctx, id, userID)
			if err != nil {
				return err
			}
			if err := q.ApplyBalanceDelta(ctx, t.AccountID, -t.SignedCents()); err != nil {
				return err
			}
			if err := q.DeleteTransaction(ctx, id, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transactions deleted",
		"user_id", userID,
		"count", len(transactionIDs))

	return nil
}

// Get returns one transaction scoped to its owner.
func (s *TransactionService) Get(ctx context.Context, userID, transactionID string) (*core.Transaction, error) {
	return s.store.GetTransaction(ctx, transactionID, userID)
}

// List returns the user's transactions newest first, optionally scoped to
// one account.
func (s *TransactionService) List(ctx context.Context, userID, accountID string, limit, offset int) ([]core.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListTransactions(ctx, userID, accountID, limit, offset)
}
