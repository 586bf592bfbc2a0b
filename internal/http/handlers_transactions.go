package http

import (
	"net/http"
	"time"

	"welth/internal/core"
	"welth/internal/services"
)

type transactionResponse struct {
	ID                string `json:"id"`
	AccountID         string `json:"accountId"`
	Type              string `json:"type"`
	Amount            string `json:"amount"`
	Date              string `json:"date"`
	Description       string `json:"description,omitempty"`
	Category          string `json:"category"`
	ReceiptURL        string `json:"receiptUrl,omitempty"`
	IsRecurring       bool   `json:"isRecurring"`
	RecurringInterval string `json:"recurringInterval,omitempty"`
	NextRecurringDate string `json:"nextRecurringDate,omitempty"`
	Status            string `json:"status"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	out := transactionResponse{
		ID:                t.ID,
		AccountID:         t.AccountID,
		Type:              string(t.Type),
		Amount:            t.Amount.Decimal(),
		Date:              t.Date.Format("2006-01-02"),
		Description:       t.Description,
		Category:          t.Category,
		ReceiptURL:        t.ReceiptURL,
		IsRecurring:       t.IsRecurring,
		RecurringInterval: string(t.RecurringInterval),
		Status:            string(t.Status),
	}
	if t.NextRecurringDate != nil {
		out.NextRecurringDate = t.NextRecurringDate.Format("2006-01-02")
	}
	return out
}

type transactionRequest struct {
	AccountID         string `json:"accountId"`
	Type              string `json:"type"`
	Amount            string `json:"amount"`
	Date              string `json:"date"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	ReceiptURL        string `json:"receiptUrl"`
	IsRecurring       bool   `json:"isRecurring"`
	RecurringInterval string `json:"recurringInterval"`
}

func (req transactionRequest) toInput() (services.CreateTransactionInput, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return services.CreateTransactionInput{}, core.ErrInvalidAmount
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return services.CreateTransactionInput{}, core.ErrInvalidDate
	}
	return services.CreateTransactionInput{
		AccountID:         req.AccountID,
		Type:              core.TransactionType(req.Type),
		Amount:            core.Money{Cents: cents},
		Date:              date,
		Description:       sanitizeInput(req.Description),
		Category:          req.Category,
		ReceiptURL:        sanitizeInput(req.ReceiptURL),
		IsRecurring:       req.IsRecurring,
		RecurringInterval: core.RecurringInterval(req.RecurringInterval),
	}, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	tx, err := s.transactions.Create(r.Context(), user.ID, in)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusCreated, toTransactionResponse(*tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	tx, err := s.transactions.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(*tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	limit, offset := parsePagination(r)
	accountID := r.URL.Query().Get("accountId")

	txs, err := s.transactions.List(r.Context(), user.ID, accountID, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	tx, err := s.transactions.Update(r.Context(), user.ID, r.PathValue("id"), in)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusOK, toTransactionResponse(*tx))
}

type deleteTransactionsRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req deleteTransactionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids required")
		return
	}

	if err := s.transactions.Delete(r.Context(), user.ID, req.IDs); err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateDashboard(user.ID)
	respondJSON(w, http.StatusOK, map[string]any{
		"deleted": len(req.IDs),
		"at":      time.Now().UTC().Format(time.RFC3339),
	})
}
