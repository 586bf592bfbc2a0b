package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"welth/internal/core"
)

type contextKey string

const userContextKey contextKey = "user"

// userFromContext returns the authenticated user placed by requireAuth.
func userFromContext(ctx context.Context) (*core.User, bool) {
	u, ok := ctx.Value(userContextKey).(*core.User)
	return u, ok
}

// requireAuth validates the Authorization header. Tokens have the shape
// "<userID>.<secret>"; the secret is compared against the stored bcrypt
// hash.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, secret, ok := strings.Cut(token, ".")
		if !ok || userID == "" || secret == "" {
			respondError(w, http.StatusUnauthorized, "malformed token")
			return
		}

		user, err := s.store.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			respondDomainError(w, err)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.TokenHash), []byte(secret)) != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

type registerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// handleRegister creates a user and returns their API token. The token
// is shown exactly once; only its hash is stored.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Email = sanitizeInput(req.Email)
	req.Name = sanitizeInput(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		respondError(w, http.StatusUnprocessableEntity, "valid email required")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusUnprocessableEntity, "name required")
		return
	}

	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	user := core.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Name:      req.Name,
		TokenHash: string(hash),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if isUniqueViolation(err) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, registerResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Token: user.ID + "." + secret,
	})
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
