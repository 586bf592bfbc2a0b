package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"welth/internal/core"
	"welth/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *storage.Repository, email string) core.User {
	t.Helper()
	u := core.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      "Test User",
		TokenHash: "x",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedAccount(t *testing.T, repo *storage.Repository, userID string, balanceCents int64, isDefault bool) core.Account {
	t.Helper()
	now := time.Now().UTC()
	a := core.Account{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      "Main Checking",
		Type:      core.AccountChecking,
		Balance:   core.Money{Cents: balanceCents},
		IsDefault: isDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.InsertAccount(context.Background(), a); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func seedRecurring(t *testing.T, repo *storage.Repository, userID, accountID string, amountCents int64, interval core.RecurringInterval) core.Transaction {
	t.Helper()
	now := time.Now().UTC()
	tx := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		AccountID:   accountID,
		Type:        core.Expense,
		Amount:      core.Money{Cents: amountCents},
		Date:        now.AddDate(0, -1, 0),
		Description: "Netflix",
		Category:    "entertainment",
		IsRecurring: true,
		RecurringInterval: interval,
		Status:            core.StatusCompleted,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := repo.InsertTransaction(context.Background(), tx); err != nil {
		t.Fatalf("seed recurring transaction: %v", err)
	}
	return tx
}

func accountBalance(t *testing.T, repo *storage.Repository, accountID, userID string) int64 {
	t.Helper()
	a, err := repo.GetAccount(context.Background(), accountID, userID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.Balance.Cents
}
