package http

import (
	"net/http"
	"time"

	"welth/internal/core"
	"welth/internal/services"
)

type accountResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	Balance          string `json:"balance"`
	IsDefault        bool   `json:"isDefault"`
	TransactionCount *int64 `json:"transactionCount,omitempty"`
	CreatedAt        string `json:"createdAt"`
}

func toAccountResponse(a core.Account, txCount *int64) accountResponse {
	return accountResponse{
		ID:               a.ID,
		Name:             a.Name,
		Type:             string(a.Type),
		Balance:          a.Balance.Decimal(),
		IsDefault:        a.IsDefault,
		TransactionCount: txCount,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
	}
}

type createAccountRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	IsDefault bool   `json:"isDefault"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	balanceCents := int64(0)
	if req.Balance != "" {
		cents, err := core.ParseDecimalToCents(req.Balance)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "invalid balance")
			return
		}
		balanceCents = cents
	}

	account, err := s.accounts.Create(r.Context(), user.ID, services.CreateAccountInput{
		Name:      sanitizeInput(req.Name),
		Type:      core.AccountType(req.Type),
		Balance:   core.Money{Cents: balanceCents},
		IsDefault: req.IsDefault,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusCreated, toAccountResponse(*account, nil))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	summaries, err := s.accounts.List(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	out := make([]accountResponse, 0, len(summaries))
	for _, sum := range summaries {
		n := sum.TransactionCount
		out = append(out, toAccountResponse(sum.Account, &n))
	}
	respondJSON(w, http.StatusOK, out)
}

type accountDetailResponse struct {
	accountResponse
	Transactions []transactionResponse `json:"transactions"`
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	limit, offset := parsePagination(r)

	account, txs, err := s.accounts.Get(r.Context(), user.ID, r.PathValue("id"), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	out := accountDetailResponse{
		accountResponse: toAccountResponse(*account, nil),
		Transactions:    make([]transactionResponse, 0, len(txs)),
	}
	for _, t := range txs {
		out.Transactions = append(out.Transactions, toTransactionResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	account, err := s.accounts.SetDefault(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusOK, toAccountResponse(*account, nil))
}
