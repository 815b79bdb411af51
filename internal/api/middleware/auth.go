package middleware

import (
	"context"
	"net/http"
	"strings"

	apiContext "suitehub/internal/api/context"
	"suitehub/internal/engine/apikeys"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/platform/auth"
)

// TokenHeader carries the console's access token.
const TokenHeader = "X-Access-Token"

type AuthMiddleware struct {
	tokenSvc *auth.TokenService
}

func NewAuthMiddleware(tokenSvc *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// Handle accepts X-Access-Token or an Authorization bearer token.
func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(TokenHeader)
		if token == "" {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing access token", nil)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid authorization header format", nil)
				return
			}
			token = parts[1]
		}

		claims, err := m.tokenSvc.ValidateToken(token)
		if err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Claims, claims)
		next(w, r.WithContext(ctx))
	}
}

func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(apiContext.Claims).(*auth.Claims)
	return claims
}

// APIKeyMiddleware authenticates integration calls by X-API-Key.
type APIKeyMiddleware struct {
	keys *apikeys.Service
}

func NewAPIKeyMiddleware(keys *apikeys.Service) *APIKeyMiddleware {
	return &APIKeyMiddleware{keys: keys}
}

func (m *APIKeyMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-API-Key")
		if secret == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing API key", nil)
			return
		}

		key, err := m.keys.Authenticate(r.Context(), secret)
		if err != nil {
			if err == apikeys.ErrInvalidKey {
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid API key", nil)
				return
			}
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to verify API key", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.APIKey, key)
		next(w, r.WithContext(ctx))
	}
}
