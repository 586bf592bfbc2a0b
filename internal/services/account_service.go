package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"welth/internal/core"
	"welth/internal/storage"
)

// AccountService owns account lifecycle: creation, listing and the
// single-default-per-user flag.
type AccountService struct {
	store *storage.Repository
}

func NewAccountService(store *storage.Repository) *AccountService {
	return &AccountService{store: store}
}

// AccountSummary pairs an account with its transaction count for list
// views.
type AccountSummary struct {
	Account          core.Account
	TransactionCount int64
}

// CreateAccountInput carries the caller-supplied fields of a new account.
type CreateAccountInput struct {
	Name      string
	Type      core.AccountType
	Balance   core.Money
	IsDefault bool
}

// Create inserts a new account. The user's first account becomes the
// default regardless of the flag; when IsDefault is set the previous
// default is cleared in the same transaction.
func (s *AccountService) Create(ctx context.Context, userID string, in CreateAccountInput) (*core.Account, error) {
	now := time.Now().UTC()
	account := core.Account{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Type:      in.Type,
		Balance:   in.Balance,
		IsDefault: in.IsDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	err := s.store.RunTx(ctx, func(q *storage.Queries) error {
		existing, err := q.CountAccounts(ctx, userID)
		if err != nil {
			return err
		}
		if existing == 0 {
			account.IsDefault = true
		} else if account.IsDefault {
			if err := q.ClearDefaultAccounts(ctx, userID); err != nil {
				return err
			}
		}
		return q.InsertAccount(ctx, account)
	})
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account created",
		"account_id", account.ID,
		"user_id", userID,
		"type", account.Type,
		"is_default", account.IsDefault)

	return &account, nil
}

// List returns the user's accounts newest first, each with its
// transaction count.
func (s *AccountService) List(ctx context.Context, userID string) ([]AccountSummary, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		n, err := s.store.CountTransactions(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, AccountSummary{Account: a, TransactionCount: n})
	}
	return summaries, nil
}

// Get returns one account with its recent transactions.
func (s *AccountService) Get(ctx context.Context, userID, accountID string, limit, offset int) (*core.Account, []core.Transaction, error) {
	account, err := s.store.GetAccount(ctx, accountID, userID)
	if err != nil {
		return nil, nil, err
	}
	txs, err := s.store.ListTransactions(ctx, userID, accountID, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	return account, txs, nil
}

// SetDefault flips the default flag to the given account, clearing any
// previous default atomically so at most one account per user carries it.
func (s *AccountService) SetDefault(ctx context.Context, userID, accountID string) (*core.Account, error) {
	err := s.store.RunTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetAccount(ctx, accountID, userID); err != nil {
			return err
		}
		if err := q.ClearDefaultAccounts(ctx, userID); err != nil {
			return err
		}
		return q.MarkAccountDefault(ctx, accountID, userID)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Default account changed",
		"account_id", accountID,
		"user_id", userID)

	return s.store.GetAccount(ctx, accountID, userID)
}
