package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"welth/internal/core"
	"welth/internal/notify"
	"welth/internal/storage"
)

type fakeInsights struct {
	insights []string
	err      error
	stats    MonthlyStats
}

func (f *fakeInsights) FinancialInsights(ctx context.Context, stats MonthlyStats, month string) ([]string, error) {
	f.stats = stats
	return f.insights, f.err
}

func seedIncome(t *testing.T, repo *storage.Repository, userID, accountID string, amountCents int64, date time.Time) {
	t.Helper()
	now := time.Now().UTC()
	tx := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		AccountID:   accountID,
		Type:        core.Income,
		Amount:      core.Money{Cents: amountCents},
		Date:        date,
		Description: "salary",
		Category:    "salary",
		Status:      core.StatusCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.InsertTransaction(context.Background(), tx); err != nil {
		t.Fatalf("seed income: %v", err)
	}
}

func TestGenerateMonthlyReports(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, "ada@example.com")
	account := seedAccount(t, repo, user.ID, 100000, true)

	now := time.Now().UTC()
	lastMonth := now.AddDate(0, -1, 0)
	seedIncome(t, repo, user.ID, account.ID, 500000, lastMonth)
	seedExpense(t, repo, user.ID, account.ID, 120000, lastMonth)
	// This month's activity must stay out of last month's report.
	seedExpense(t, repo, user.ID, account.ID, 99900, now)

	notifier := notify.NewMemoryNotifier()
	insights := &fakeInsights{insights: []string{"Groceries dominate your spending."}}
	gen := NewReportGenerator(repo, notifier, insights)

	sent, err := gen.GenerateMonthlyReports(context.Background(), now)
	if err != nil {
		t.Fatalf("GenerateMonthlyReports() error = %v", err)
	}
	if sent != 1 {
		t.Fatalf("GenerateMonthlyReports() sent = %d, want 1", sent)
	}

	if insights.stats.TotalIncome != 500000 {
		t.Errorf("stats income = %d, want 500000", insights.stats.TotalIncome)
	}
	if insights.stats.TotalExpenses != 120000 {
		t.Errorf("stats expenses = %d, want 120000", insights.stats.TotalExpenses)
	}

	msgs := notifier.Sent()
	if len(msgs) != 1 {
		t.Fatalf("reports sent = %d, want 1", len(msgs))
	}
	if msgs[0].To != user.Email {
		t.Errorf("report to = %q, want %q", msgs[0].To, user.Email)
	}
	if !strings.Contains(msgs[0].Subject, lastMonth.Format("January")) {
		t.Errorf("subject %q missing month name", msgs[0].Subject)
	}
	if !strings.Contains(msgs[0].Body, "Groceries dominate your spending.") {
		t.Error("report body missing generated insight")
	}
}

func TestGenerateMonthlyReportsFallbackInsights(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, "ada@example.com")
	account := seedAccount(t, repo, user.ID, 100000, true)
	seedExpense(t, repo, user.ID, account.ID, 5000, time.Now().UTC().AddDate(0, -1, 0))

	notifier := notify.NewMemoryNotifier()
	gen := NewReportGenerator(repo, notifier, &fakeInsights{err: errors.New("model unavailable")})

	if _, err := gen.GenerateMonthlyReports(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("GenerateMonthlyReports() error = %v", err)
	}
	msgs := notifier.Sent()
	if len(msgs) != 1 {
		t.Fatalf("reports sent = %d, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].Body, "budget") {
		t.Error("report body missing fallback insights")
	}
}

func TestGenerateMonthlyReportsNoInsightsGenerator(t *testing.T) {
	repo := newTestRepo(t)
	seedUser(t, repo, "ada@example.com")

	notifier := notify.NewMemoryNotifier()
	gen := NewReportGenerator(repo, notifier, nil)

	sent, err := gen.GenerateMonthlyReports(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("GenerateMonthlyReports() error = %v", err)
	}
	if sent != 1 {
		t.Fatalf("GenerateMonthlyReports() sent = %d, want 1", sent)
	}
	if !strings.Contains(notifier.Sent()[0].Body, "No transactions recorded") {
		t.Error("empty month report missing no-activity insight")
	}
}

func TestComputeMonthlyStats(t *testing.T) {
	txs := []core.Transaction{
		{Type: core.Income, Amount: core.Money{Cents: 300000}, Category: "salary"},
		{Type: core.Expense, Amount: core.Money{Cents: 40000}, Category: "groceries"},
		{Type: core.Expense, Amount: core.Money{Cents: 10000}, Category: "groceries"},
		{Type: core.Expense, Amount: core.Money{Cents: 150000}, Category: "housing"},
	}
	stats := computeMonthlyStats(txs)
	if stats.TotalIncome != 300000 {
		t.Errorf("TotalIncome = %d, want 300000", stats.TotalIncome)
	}
	if stats.TotalExpenses != 200000 {
		t.Errorf("TotalExpenses = %d, want 200000", stats.TotalExpenses)
	}
	if stats.Net() != 100000 {
		t.Errorf("Net() = %d, want 100000", stats.Net())
	}
	if stats.ByCategory["groceries"] != 50000 {
		t.Errorf("groceries = %d, want 50000", stats.ByCategory["groceries"])
	}
	if stats.TransactionCount != 4 {
		t.Errorf("TransactionCount = %d, want 4", stats.TransactionCount)
	}
}
