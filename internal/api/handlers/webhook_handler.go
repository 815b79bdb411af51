package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"suitehub/internal/api/middleware"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/platform/audit"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

type WebhookHandler struct {
	repo  *repositories.WebhookRepository
	audit *audit.Logger
}

func NewWebhookHandler(repo *repositories.WebhookRepository, auditLog *audit.Logger) *WebhookHandler {
	return &WebhookHandler{repo: repo, audit: auditLog}
}

type CreateWebhookRequest struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"required,min=1"`
	Secret string   `json:"secret"`
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	sub := middleware.SubscriptionFrom(r.Context())
	claims := claimsOf(r)

	var req CreateWebhookRequest
	if !decode(w, r, &req) {
		return
	}

	webhook := &models.Webhook{
		SubscriptionID: sub.ID,
		URL:            req.URL,
		Events:         req.Events,
		Secret:         req.Secret,
	}
	if webhook.Secret == "" {
		webhook.Secret = "whsec_" + uuid.NewString()
	}

	if err := h.repo.Create(r.Context(), webhook); err != nil {
		internalError(w, r, "Failed to create webhook", err)
		return
	}

	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), sub.TeamID, "webhook.created", "webhook", webhook.ID,
		map[string]interface{}{"url": webhook.URL, "events": webhook.Events})

	// The secret is only returned on creation.
	writeJSON(w, http.StatusCreated, webhook)
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	sub := middleware.SubscriptionFrom(r.Context())

	webhooks, err := h.repo.ListBySubscription(r.Context(), sub.ID)
	if err != nil {
		internalError(w, r, "Failed to list webhooks", err)
		return
	}
	for _, wh := range webhooks {
		wh.Secret = ""
	}
	writeJSON(w, http.StatusOK, webhooks)
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sub := middleware.SubscriptionFrom(r.Context())
	claims := claimsOf(r)

	webhook, err := h.repo.GetByID(r.Context(), middleware.Param(r, "webhook_id"))
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if webhook == nil || webhook.SubscriptionID != sub.ID {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
		return
	}

	if err := h.repo.Delete(r.Context(), webhook.ID); err != nil {
		internalError(w, r, "Failed to delete webhook", err)
		return
	}

	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), sub.TeamID, "webhook.deleted", "webhook", webhook.ID, nil)
	w.WriteHeader(http.StatusNoContent)
}
