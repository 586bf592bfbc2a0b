package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"welth/internal/core"
)

type budgetResponse struct {
	Amount         string `json:"amount"`
	SpentThisMonth string `json:"spentThisMonth"`
	PercentUsed    string `json:"percentUsed"`
	LastAlertSent  string `json:"lastAlertSent,omitempty"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	budget, err := s.store.GetBudget(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	spent := int64(0)
	if account, err := s.store.GetDefaultAccount(r.Context(), user.ID); err == nil {
		now := time.Now().UTC()
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
		if total, err := s.store.AggregateExpenses(r.Context(), account.ID, from, to); err == nil {
			spent = total
		}
	} else if !errors.Is(err, core.ErrNotFound) {
		respondDomainError(w, err)
		return
	}

	out := budgetResponse{
		Amount:         budget.Amount.Decimal(),
		SpentThisMonth: core.Money{Cents: spent}.Decimal(),
	}
	if budget.Amount.Cents > 0 {
		out.PercentUsed = formatPercent(spent, budget.Amount.Cents)
	}
	if budget.LastAlertSent != nil {
		out.LastAlertSent = budget.LastAlertSent.Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, out)
}

type upsertBudgetRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req upsertBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondDomainError(w, core.ErrInvalidAmount)
		return
	}

	now := time.Now().UTC()
	budget := core.Budget{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Amount:    core.Money{Cents: cents},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := budget.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := s.store.UpsertBudget(r.Context(), budget); err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusOK, map[string]string{"amount": budget.Amount.Decimal()})
}
