package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"welth/internal/core"
)

type dashboardResponse struct {
	Accounts      []accountResponse `json:"accounts"`
	NetWorth      string            `json:"netWorth"`
	MonthIncome   string            `json:"monthIncome"`
	MonthExpenses string            `json:"monthExpenses"`
	ByCategory    map[string]string `json:"byCategory"`
	Budget        *budgetResponse   `json:"budget,omitempty"`
	GeneratedAt   string            `json:"generatedAt"`
}

// handleDashboard assembles the month overview. Responses are cached per
// user for a few minutes and invalidated on every write.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	if cached, ok := s.dashboardCache.Get(user.ID); ok {
		w.Header().Set("X-Cache", "HIT")
		respondJSON(w, http.StatusOK, cached)
		return
	}

	summaries, err := s.accounts.List(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	txs, err := s.store.ListTransactionsInRange(r.Context(), user.ID, from, to)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	out := dashboardResponse{
		Accounts:    make([]accountResponse, 0, len(summaries)),
		ByCategory:  make(map[string]string),
		GeneratedAt: now.Format(time.RFC3339),
	}

	netWorth := int64(0)
	for _, sum := range summaries {
		n := sum.TransactionCount
		out.Accounts = append(out.Accounts, toAccountResponse(sum.Account, &n))
		netWorth += sum.Account.Balance.Cents
	}
	out.NetWorth = core.Money{Cents: netWorth}.Decimal()

	income, expenses := int64(0), int64(0)
	byCategory := make(map[string]int64)
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			income += t.Amount.Cents
		case core.Expense:
			expenses += t.Amount.Cents
			byCategory[t.Category] += t.Amount.Cents
		}
	}
	out.MonthIncome = core.Money{Cents: income}.Decimal()
	out.MonthExpenses = core.Money{Cents: expenses}.Decimal()
	for category, cents := range byCategory {
		out.ByCategory[category] = core.Money{Cents: cents}.Decimal()
	}

	if budget, err := s.store.GetBudget(r.Context(), user.ID); err == nil {
		b := budgetResponse{
			Amount:         budget.Amount.Decimal(),
			SpentThisMonth: core.Money{Cents: expenses}.Decimal(),
		}
		if budget.Amount.Cents > 0 {
			b.PercentUsed = formatPercent(expenses, budget.Amount.Cents)
		}
		out.Budget = &b
	}

	s.dashboardCache.Set(user.ID, out)
	w.Header().Set("X-Cache", "MISS")

	slog.DebugContext(r.Context(), "Dashboard assembled",
		"user_id", user.ID,
		"accounts", len(out.Accounts),
		"transactions", len(txs))

	respondJSON(w, http.StatusOK, out)
}

func formatPercent(part, whole int64) string {
	return fmt.Sprintf("%.1f", float64(part)/float64(whole)*100)
}
