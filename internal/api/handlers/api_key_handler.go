package handlers

import (
	"net/http"

	apiContext "suitehub/internal/api/context"
	"suitehub/internal/api/middleware"
	"suitehub/internal/engine/apikeys"
	"suitehub/internal/engine/webhooks"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/platform/audit"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

type APIKeyHandler struct {
	keys       *apikeys.Service
	subRepo    *repositories.SubscriptionRepository
	dispatcher *webhooks.Dispatcher
	audit      *audit.Logger
}

func NewAPIKeyHandler(keys *apikeys.Service, subRepo *repositories.SubscriptionRepository, dispatcher *webhooks.Dispatcher, auditLog *audit.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		keys:       keys,
		subRepo:    subRepo,
		dispatcher: dispatcher,
		audit:      auditLog,
	}
}

func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	sub := middleware.SubscriptionFrom(r.Context())

	keys, err := h.keys.List(r.Context(), sub)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

// Create returns the secret exactly once.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	sub := middleware.SubscriptionFrom(r.Context())
	claims := claimsOf(r)

	var req CreateAPIKeyRequest
	if !decode(w, r, &req) {
		return
	}

	issued, err := h.keys.Create(r.Context(), sub, req.Name, claims.Email)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.dispatcher.Dispatch(r.Context(), sub, webhooks.EventAPIKeyCreated, issued.APIKey)
	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), sub.TeamID, "api_key.created", "api_key", issued.ID,
		map[string]interface{}{"name": issued.Name, "key_prefix": issued.KeyPrefix})

	writeJSON(w, http.StatusCreated, issued)
}

func (h *APIKeyHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	sub := middleware.SubscriptionFrom(r.Context())
	claims := claimsOf(r)

	issued, err := h.keys.Regenerate(r.Context(), sub, middleware.Param(r, "key_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.dispatcher.Dispatch(r.Context(), sub, webhooks.EventAPIKeyRegenerated, issued.APIKey)
	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), sub.TeamID, "api_key.regenerated", "api_key", issued.ID,
		map[string]interface{}{"key_prefix": issued.KeyPrefix})

	writeJSON(w, http.StatusOK, issued)
}

func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sub := middleware.SubscriptionFrom(r.Context())
	claims := claimsOf(r)
	keyID := middleware.Param(r, "key_id")

	if err := h.keys.Delete(r.Context(), sub, keyID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.dispatcher.Dispatch(r.Context(), sub, webhooks.EventAPIKeyDeleted, map[string]string{"id": keyID})
	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), sub.TeamID, "api_key.deleted", "api_key", keyID, nil)

	w.WriteHeader(http.StatusNoContent)
}

type WhoAmIResponse struct {
	Key          *models.APIKey          `json:"key"`
	Subscription *models.AppSubscription `json:"subscription"`
}

// WhoAmI lets an integration check which subscription its key belongs to.
func (h *APIKeyHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	key, _ := r.Context().Value(apiContext.APIKey).(*models.APIKey)

	sub, err := h.subRepo.GetByID(r.Context(), key.SubscriptionID)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if sub == nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid API key", nil)
		return
	}
	writeJSON(w, http.StatusOK, WhoAmIResponse{Key: key, Subscription: sub})
}
