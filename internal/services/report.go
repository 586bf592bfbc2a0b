package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"welth/internal/core"
	"welth/internal/notify"
	"welth/internal/storage"
)

// MonthlyStats aggregates a user's activity over one calendar month.
type MonthlyStats struct {
	TotalIncome      int64
	TotalExpenses    int64
	ByCategory       map[string]int64
	TransactionCount int
}

// Net returns income minus expenses in cents.
func (s MonthlyStats) Net() int64 {
	return s.TotalIncome - s.TotalExpenses
}

// InsightsGenerator produces short natural-language observations about a
// month of spending. Implementations may call an external model; the
// caller falls back to canned insights when generation fails.
type InsightsGenerator interface {
	FinancialInsights(ctx context.Context, stats MonthlyStats, month string) ([]string, error)
}

// ReportGenerator emails every user a summary of the previous month.
type ReportGenerator struct {
	store    *storage.Repository
	notifier notify.Notifier
	insights InsightsGenerator
}

// NewReportGenerator creates a report generator. insights may be nil, in
// which case static fallback insights are used.
func NewReportGenerator(store *storage.Repository, notifier notify.Notifier, insights InsightsGenerator) *ReportGenerator {
	return &ReportGenerator{store: store, notifier: notifier, insights: insights}
}

// GenerateMonthlyReports builds and sends last month's report for every
// user. Returns the number of reports sent; per-user failures are logged
// and skipped.
func (g *ReportGenerator) GenerateMonthlyReports(ctx context.Context, now time.Time) (int, error) {
	users, err := g.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	lastMonth := now.AddDate(0, -1, 0)
	from, to := monthRange(lastMonth)
	monthName := lastMonth.Format("January")

	slog.InfoContext(ctx, "Generating monthly reports",
		"month", monthName,
		"users", len(users))

	sent := 0
	for _, user := range users {
		if err := g.reportForUser(ctx, user, from, to, monthName); err != nil {
			slog.ErrorContext(ctx, "Monthly report failed",
				"user_id", user.ID,
				"error", err)
			continue
		}
		sent++
	}

	return sent, nil
}

func (g *ReportGenerator) reportForUser(ctx context.Context, user core.User, from, to time.Time, monthName string) error {
	txs, err := g.store.ListTransactionsInRange(ctx, user.ID, from, to)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	stats := computeMonthlyStats(txs)
	insights := g.insightsFor(ctx, stats, monthName)

	data := notify.MonthlyReportData{
		UserName:      user.Name,
		Month:         monthName,
		TotalIncome:   core.Money{Cents: stats.TotalIncome}.Decimal(),
		TotalExpenses: core.Money{Cents: stats.TotalExpenses}.Decimal(),
		Net:           core.Money{Cents: stats.Net()}.Decimal(),
		Insights:      insights,
	}
	for _, category := range core.ExpenseCategories {
		if cents, ok := stats.ByCategory[category]; ok {
			data.ByCategory = append(data.ByCategory, notify.CategoryAmount{
				Name:   category,
				Amount: core.Money{Cents: cents}.Decimal(),
			})
		}
	}

	body, err := notify.RenderMonthlyReport(data)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Your %s Financial Report", monthName)
	if err := g.notifier.Send(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("send report: %w", err)
	}

	return nil
}

func (g *ReportGenerator) insightsFor(ctx context.Context, stats MonthlyStats, monthName string) []string {
	if g.insights != nil {
		insights, err := g.insights.FinancialInsights(ctx, stats, monthName)
		if err == nil && len(insights) > 0 {
			return insights
		}
		if err != nil {
			slog.WarnContext(ctx, "Insights generation failed, using fallback", "error", err)
		}
	}
	return fallbackInsights(stats)
}

// fallbackInsights covers months where the model is unavailable or the
// user had no activity.
func fallbackInsights(stats MonthlyStats) []string {
	if stats.TransactionCount == 0 {
		return []string{
			"No transactions recorded this month.",
			"Add your accounts and transactions to start tracking your finances.",
		}
	}
	return []string{
		"Your highest expense category this month might need attention.",
		"Consider setting up a budget for better financial management.",
		"Track your recurring expenses to identify potential savings.",
	}
}

// computeMonthlyStats reduces a month of transactions into totals,
// mirroring the dashboard aggregation.
func computeMonthlyStats(txs []core.Transaction) MonthlyStats {
	stats := MonthlyStats{ByCategory: make(map[string]int64)}
	for _, tx := range txs {
		stats.TransactionCount++
		switch tx.Type {
		case core.Income:
			stats.TotalIncome += tx.Amount.Cents
		case core.Expense:
			stats.TotalExpenses += tx.Amount.Cents
			stats.ByCategory[tx.Category] += tx.Amount.Cents
		}
	}
	return stats
}
