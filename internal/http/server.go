// Package http exposes the JSON API: accounts, transactions, budget,
// dashboard and receipt scanning.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"welth/internal/ai"
	"welth/internal/cache"
	"welth/internal/middleware/ratelimit"
	"welth/internal/middleware/security"
	"welth/internal/middleware/trace"
	"welth/internal/services"
	"welth/internal/storage"
)

// ReceiptScanner extracts transaction fields from a receipt image. Nil
// when no model is configured; the endpoint then answers 503.
type ReceiptScanner interface {
	ScanReceipt(ctx context.Context, imageData []byte, mimeType string) (*ai.ReceiptData, error)
}

// Options carries the server's tunables.
type Options struct {
	Addr               string
	RateLimitPerMinute int
}

// Server is the API server with its caches and background cleanup.
type Server struct {
	http.Server

	store        *storage.Repository
	accounts     *services.AccountService
	transactions *services.TransactionService
	scanner      ReceiptScanner

	rateLimiter    *ratelimit.Limiter
	userLimiter    *ratelimit.Limiter
	ipResolver     *security.ClientIPResolver
	dashboardCache *cache.LRUCache[dashboardResponse]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(opts Options, store *storage.Repository, scanner ReceiptScanner) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         opts.Addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		store:        store,
		accounts:     services.NewAccountService(store),
		transactions: services.NewTransactionService(store),
		scanner:      scanner,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		userLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		ipResolver:     security.NewClientIPResolver(),
		dashboardCache: cache.NewLRUCache[dashboardResponse](100, 5*time.Minute),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.dashboardCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /users", s.handleRegister)

	mux.HandleFunc("GET /accounts", s.requireAuth(s.handleListAccounts))
	mux.HandleFunc("POST /accounts", s.requireAuth(s.handleCreateAccount))
	mux.HandleFunc("GET /accounts/{id}", s.requireAuth(s.handleGetAccount))
	mux.HandleFunc("PATCH /accounts/{id}/default", s.requireAuth(s.handleSetDefaultAccount))

	mux.HandleFunc("GET /transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("POST /transactions", s.requireAuth(s.limitByUser(s.handleCreateTransaction)))
	mux.HandleFunc("GET /transactions/{id}", s.requireAuth(s.handleGetTransaction))
	mux.HandleFunc("PUT /transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions", s.requireAuth(s.handleDeleteTransactions))

	mux.HandleFunc("GET /budget", s.requireAuth(s.handleGetBudget))
	mux.HandleFunc("PUT /budget", s.requireAuth(s.handleUpsertBudget))

	mux.HandleFunc("GET /dashboard", s.requireAuth(s.handleDashboard))

	mux.HandleFunc("POST /receipts/scan", s.requireAuth(s.handleScanReceipt))

	// Outermost first: tracing, then hardening headers, then the
	// pre-auth IP rate limit.
	traceMW := trace.NewMiddleware(s.ipResolver.ExtractClientIP)
	headersMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limitMW := s.rateLimiter.Middleware(s.ipResolver.ExtractClientIP, nil)

	s.Server.Handler = traceMW.Middleware(headersMW.Middleware(limitMW(mux)))

	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListUsers(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// limitByUser throttles an authenticated endpoint per user, so one
// user's burst cannot consume the shared IP budget of a proxy.
func (s *Server) limitByUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := userFromContext(r.Context())
		if !s.userLimiter.Allow(user.ID) {
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

// invalidateDashboard drops the cached overview after any write that
// would change it.
func (s *Server) invalidateDashboard(userID string) {
	s.dashboardCache.Delete(userID)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		s.userLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
