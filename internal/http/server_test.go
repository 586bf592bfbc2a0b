package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"welth/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	s := NewServer(Options{Addr: ":0", RateLimitPerMinute: 1000}, repo, nil)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

// do runs a request through the full middleware chain and decodes the
// JSON response into out when out is non-nil.
func do(t *testing.T, s *Server, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func registerUser(t *testing.T, s *Server, email string) string {
	t.Helper()
	var resp registerResponse
	rec := do(t, s, http.MethodPost, "/users", "", registerRequest{Email: email, Name: "Test User"}, &resp)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resp.Token == "" {
		t.Fatal("expected a token in the register response")
	}
	return resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	if rec := do(t, s, http.MethodGet, "/healthz", "", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/readyz", "", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d", rec.Code)
	}
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	token := registerUser(t, s, "ada@example.com")
	if !strings.Contains(token, ".") {
		t.Fatalf("token %q missing the id.secret separator", token)
	}

	t.Run("duplicate email", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/users", "", registerRequest{Email: "ada@example.com", Name: "Again"}, nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/users", "", registerRequest{Email: "not-an-email", Name: "X"}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
	})
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "ada@example.com")

	cases := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"malformed token", "garbage"},
		{"wrong secret", strings.SplitN(token, ".", 2)[0] + ".wrong-secret"},
		{"unknown user", "nope.secret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/accounts", tc.token, nil, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAccountLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "ada@example.com")

	var first accountResponse
	rec := do(t, s, http.MethodPost, "/accounts", token,
		createAccountRequest{Name: "Checking", Type: "CHECKING", Balance: "1000.00"}, &first)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !first.IsDefault {
		t.Error("first account should become the default")
	}
	if first.Balance != "1000.00" {
		t.Errorf("balance = %q, want 1000.00", first.Balance)
	}

	var second accountResponse
	do(t, s, http.MethodPost, "/accounts", token,
		createAccountRequest{Name: "Savings", Type: "SAVINGS", Balance: "50.00"}, &second)
	if second.IsDefault {
		t.Error("second account should not be default")
	}

	var listed []accountResponse
	if rec := do(t, s, http.MethodGet, "/accounts", token, nil, &listed); rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d accounts, want 2", len(listed))
	}

	var promoted accountResponse
	rec = do(t, s, http.MethodPatch, "/accounts/"+second.ID+"/default", token, nil, &promoted)
	if rec.Code != http.StatusOK {
		t.Fatalf("set default status = %d", rec.Code)
	}
	if !promoted.IsDefault {
		t.Error("promoted account should be default")
	}

	var detail accountDetailResponse
	rec = do(t, s, http.MethodGet, "/accounts/"+first.ID, token, nil, &detail)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if detail.IsDefault {
		t.Error("previous default should have been cleared")
	}

	t.Run("invalid type rejected", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/accounts", token,
			createAccountRequest{Name: "Bad", Type: "OFFSHORE"}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("other user's account hidden", func(t *testing.T) {
		other := registerUser(t, s, "bob@example.com")
		rec := do(t, s, http.MethodGet, "/accounts/"+first.ID, other, nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "ada@example.com")

	var account accountResponse
	do(t, s, http.MethodPost, "/accounts", token,
		createAccountRequest{Name: "Checking", Type: "CHECKING", Balance: "1000.00"}, &account)

	var created transactionResponse
	rec := do(t, s, http.MethodPost, "/transactions", token, transactionRequest{
		AccountID:   account.ID,
		Type:        "EXPENSE",
		Amount:      "25.50",
		Date:        "2026-08-10",
		Description: "Groceries",
		Category:    "groceries",
	}, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	if created.Amount != "25.50" {
		t.Errorf("amount = %q, want 25.50", created.Amount)
	}

	var detail accountDetailResponse
	do(t, s, http.MethodGet, "/accounts/"+account.ID, token, nil, &detail)
	if detail.Balance != "974.50" {
		t.Errorf("balance = %q, want 974.50", detail.Balance)
	}

	t.Run("overdraft rejected", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/transactions", token, transactionRequest{
			AccountID: account.ID,
			Type:      "EXPENSE",
			Amount:    "99999.00",
			Date:      "2026-08-10",
			Category:  "groceries",
		}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "insufficient funds") {
			t.Errorf("body %q should mention insufficient funds", rec.Body.String())
		}
	})

	t.Run("invalid amount rejected", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/transactions", token, transactionRequest{
			AccountID: account.ID,
			Type:      "EXPENSE",
			Amount:    "abc",
			Date:      "2026-08-10",
			Category:  "groceries",
		}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
	})

	var updated transactionResponse
	rec = do(t, s, http.MethodPut, "/transactions/"+created.ID, token, transactionRequest{
		AccountID:   account.ID,
		Type:        "EXPENSE",
		Amount:      "30.00",
		Date:        "2026-08-10",
		Description: "Groceries and snacks",
		Category:    "groceries",
	}, &updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}

	do(t, s, http.MethodGet, "/accounts/"+account.ID, token, nil, &detail)
	if detail.Balance != "970.00" {
		t.Errorf("balance after update = %q, want 970.00", detail.Balance)
	}

	rec = do(t, s, http.MethodDelete, "/transactions", token,
		deleteTransactionsRequest{IDs: []string{created.ID}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}

	do(t, s, http.MethodGet, "/accounts/"+account.ID, token, nil, &detail)
	if detail.Balance != "1000.00" {
		t.Errorf("balance after delete = %q, want 1000.00", detail.Balance)
	}

	t.Run("empty id list rejected", func(t *testing.T) {
		rec := do(t, s, http.MethodDelete, "/transactions", token, deleteTransactionsRequest{}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestBudgetEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "ada@example.com")

	do(t, s, http.MethodPost, "/accounts", token,
		createAccountRequest{Name: "Checking", Type: "CHECKING", Balance: "1000.00"}, nil)

	t.Run("no budget yet", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/budget", token, nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	rec := do(t, s, http.MethodPut, "/budget", token, upsertBudgetRequest{Amount: "500.00"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, body %s", rec.Code, rec.Body.String())
	}

	today := transactionRequest{
		Type:     "EXPENSE",
		Amount:   "100.00",
		Category: "groceries",
	}
	var accounts []accountResponse
	do(t, s, http.MethodGet, "/accounts", token, nil, &accounts)
	today.AccountID = accounts[0].ID
	today.Date = nowDateString()
	if rec := do(t, s, http.MethodPost, "/transactions", token, today, nil); rec.Code != http.StatusCreated {
		t.Fatalf("expense status = %d, body %s", rec.Code, rec.Body.String())
	}

	var budget budgetResponse
	rec = do(t, s, http.MethodGet, "/budget", token, nil, &budget)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if budget.Amount != "500.00" {
		t.Errorf("amount = %q, want 500.00", budget.Amount)
	}
	if budget.SpentThisMonth != "100.00" {
		t.Errorf("spent = %q, want 100.00", budget.SpentThisMonth)
	}
	if budget.PercentUsed != "20.0" {
		t.Errorf("percent = %q, want 20.0", budget.PercentUsed)
	}
}

func TestDashboardCaching(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "ada@example.com")

	var account accountResponse
	do(t, s, http.MethodPost, "/accounts", token,
		createAccountRequest{Name: "Checking", Type: "CHECKING", Balance: "1000.00"}, &account)

	rec := do(t, s, http.MethodGet, "/dashboard", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("first request X-Cache = %q, want MISS", got)
	}

	rec = do(t, s, http.MethodGet, "/dashboard", token, nil, nil)
	if got := rec.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("second request X-Cache = %q, want HIT", got)
	}

	do(t, s, http.MethodPost, "/transactions", token, transactionRequest{
		AccountID: account.ID,
		Type:      "INCOME",
		Amount:    "200.00",
		Date:      nowDateString(),
		Category:  "salary",
	}, nil)

	var dash dashboardResponse
	rec = do(t, s, http.MethodGet, "/dashboard", token, nil, &dash)
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("post-write X-Cache = %q, want MISS", got)
	}
	if dash.NetWorth != "1200.00" {
		t.Errorf("net worth = %q, want 1200.00", dash.NetWorth)
	}
	if dash.MonthIncome != "200.00" {
		t.Errorf("month income = %q, want 200.00", dash.MonthIncome)
	}
}

func TestScanReceiptUnconfigured(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "ada@example.com")

	req := httptest.NewRequest(http.MethodPost, "/receipts/scan", bytes.NewReader([]byte{0xff, 0xd8}))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "image/jpeg")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func nowDateString() string {
	now := time.Now().UTC()
	return fmt.Sprintf("%04d-%02d-%02d", now.Year(), now.Month(), now.Day())
}
