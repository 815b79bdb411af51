package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"suitehub/internal/pkg/errors"
	"suitehub/internal/pkg/validator"
	"suitehub/internal/platform/auth"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

type AuthHandler struct {
	accountRepo *repositories.AccountRepository
	tokenSvc    *auth.TokenService
	cost        int
}

func NewAuthHandler(accountRepo *repositories.AccountRepository, tokenSvc *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		accountRepo: accountRepo,
		tokenSvc:    tokenSvc,
		cost:        bcrypt.DefaultCost,
	}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (h *AuthHandler) WithCost(cost int) *AuthHandler {
	h.cost = cost
	return h
}

type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"max=120"`
}

type SessionResponse struct {
	Account     *models.Account `json:"account"`
	AccessToken string          `json:"access_token"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decode(w, r, &req) {
		return
	}
	email := validator.NormalizeEmail(req.Email)

	existing, err := h.accountRepo.GetByEmail(r.Context(), email)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if existing != nil {
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Account already exists", nil)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost)
	if err != nil {
		internalError(w, r, "Failed to hash password", err)
		return
	}

	account := &models.Account{
		ID:           "acct_" + uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().Unix(),
	}
	if err := h.accountRepo.Create(r.Context(), account); err != nil {
		internalError(w, r, "Failed to create account", err)
		return
	}

	accessToken, err := h.tokenSvc.GenerateAccessToken(account.ID, account.Email, account.DisplayName)
	if err != nil {
		internalError(w, r, "Failed to generate token", err)
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{Account: account, AccessToken: accessToken})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	account, err := h.accountRepo.GetByEmail(r.Context(), validator.NormalizeEmail(req.Email))
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if account == nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid credentials", nil)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid credentials", nil)
		return
	}

	accessToken, err := h.tokenSvc.GenerateAccessToken(account.ID, account.Email, account.DisplayName)
	if err != nil {
		internalError(w, r, "Failed to generate token", err)
		return
	}

	now := time.Now().Unix()
	if err := h.accountRepo.UpdateLastLogin(r.Context(), account.ID, now); err == nil {
		account.LastLoginAt = &now
	}

	writeJSON(w, http.StatusOK, SessionResponse{Account: account, AccessToken: accessToken})
}

type MeResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Me echoes the identity carried by the caller's token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := claimsOf(r)
	resp := MeResponse{UserID: claims.UserID, Email: claims.Email, DisplayName: claims.DisplayName}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}
	writeJSON(w, http.StatusOK, resp)
}
