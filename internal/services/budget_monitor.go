package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"welth/internal/core"
	"welth/internal/notify"
	"welth/internal/storage"
)

// alertThresholdPercent is the budget usage at which an alert goes out.
const alertThresholdPercent = 80.0

// BudgetMonitor periodically compares each user's current-month expenses
// against their budget and sends at most one alert per calendar month.
type BudgetMonitor struct {
	store    *storage.Repository
	notifier notify.Notifier
}

func NewBudgetMonitor(store *storage.Repository, notifier notify.Notifier) *BudgetMonitor {
	return &BudgetMonitor{store: store, notifier: notifier}
}

// CheckBudgets evaluates every budget against the owner's default
// account and returns how many were checked. Per-budget failures are
// logged and do not abort the sweep.
func (m *BudgetMonitor) CheckBudgets(ctx context.Context, now time.Time) (int, error) {
	budgets, err := m.store.ListBudgets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list budgets: %w", err)
	}

	slog.InfoContext(ctx, "Checking budgets", "total", len(budgets))

	checked := 0
	for _, budget := range budgets {
		if err := m.checkBudget(ctx, budget, now); err != nil {
			slog.ErrorContext(ctx, "Budget check failed",
				"budget_id", budget.ID,
				"user_id", budget.UserID,
				"error", err)
			continue
		}
		checked++
	}

	slog.InfoContext(ctx, "Budget check complete",
		"checked", checked,
		"total", len(budgets))

	return checked, nil
}

func (m *BudgetMonitor) checkBudget(ctx context.Context, budget core.Budget, now time.Time) error {
	account, err := m.store.GetDefaultAccount(ctx, budget.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// No default account, nothing to measure against.
			return nil
		}
		return fmt.Errorf("resolve default account: %w", err)
	}

	from, to := monthRange(now)
	totalExpenses, err := m.store.AggregateExpenses(ctx, account.ID, from, to)
	if err != nil {
		return fmt.Errorf("aggregate expenses: %w", err)
	}

	if budget.Amount.Cents <= 0 {
		return nil
	}
	percentUsed := float64(totalExpenses) / float64(budget.Amount.Cents) * 100

	if percentUsed < alertThresholdPercent || !alertAllowedThisMonth(budget.LastAlertSent, now) {
		return nil
	}

	user, err := m.store.GetUser(ctx, budget.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	body, err := notify.RenderBudgetAlert(notify.BudgetAlertData{
		UserName:      user.Name,
		AccountName:   account.Name,
		PercentUsed:   fmt.Sprintf("%.1f", percentUsed),
		BudgetAmount:  budget.Amount.Decimal(),
		TotalExpenses: core.Money{Cents: totalExpenses}.Decimal(),
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Budget Alert for %s", account.Name)
	if err := m.notifier.Send(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("send budget alert: %w", err)
	}

	// Persist only after the alert went out; a send failure leaves
	// last_alert_sent untouched so the next sweep retries.
	if err := m.store.SetBudgetAlertSent(ctx, budget.ID, now); err != nil {
		return fmt.Errorf("record alert sent: %w", err)
	}

	slog.InfoContext(ctx, "Budget alert sent",
		"budget_id", budget.ID,
		"user_id", budget.UserID,
		"percent_used", fmt.Sprintf("%.1f", percentUsed))

	return nil
}

// alertAllowedThisMonth guards the one-alert-per-calendar-month rule.
func alertAllowedThisMonth(lastAlertSent *time.Time, now time.Time) bool {
	if lastAlertSent == nil {
		return true
	}
	return lastAlertSent.Month() != now.Month() || lastAlertSent.Year() != now.Year()
}

// monthRange returns the inclusive bounds of the calendar month
// containing t.
func monthRange(t time.Time) (time.Time, time.Time) {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return from, to
}
