package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"suitehub/internal/api/middleware"
	"suitehub/internal/engine/access"
	"suitehub/internal/engine/subscriptions"
	"suitehub/internal/engine/webhooks"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/platform/audit"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

type SubscriptionHandler struct {
	subRepo     *repositories.SubscriptionRepository
	invoiceRepo *repositories.InvoiceRepository
	catalogRepo *repositories.CatalogRepository
	dispatcher  *webhooks.Dispatcher
	audit       *audit.Logger
	policy      access.Policy
}

func NewSubscriptionHandler(
	subRepo *repositories.SubscriptionRepository,
	invoiceRepo *repositories.InvoiceRepository,
	catalogRepo *repositories.CatalogRepository,
	dispatcher *webhooks.Dispatcher,
	auditLog *audit.Logger,
	policy access.Policy,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subRepo:     subRepo,
		invoiceRepo: invoiceRepo,
		catalogRepo: catalogRepo,
		dispatcher:  dispatcher,
		audit:       auditLog,
		policy:      policy,
	}
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TeamFrom(r.Context())

	subs, err := h.subRepo.ListByTeam(r.Context(), tc.Team.ID)
	if err != nil {
		internalError(w, r, "Failed to list subscriptions", err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

type SubscribeRequest struct {
	TeamID       string `json:"team_id" validate:"required"`
	AppCode      string `json:"app_code" validate:"required"`
	BillingCycle string `json:"billing_cycle" validate:"omitempty,oneof=monthly yearly"`
}

// Create subscribes the team to an app. Under the trial policy the
// subscription starts as a free trial; otherwise it starts registered with
// its first invoice pending.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TeamFrom(r.Context())
	claims := claimsOf(r)

	var req SubscribeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := access.CheckSubscribe(tc.Team, tc.Evaluator); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if req.BillingCycle == "" {
		req.BillingCycle = models.BillingMonthly
	}

	pricing, err := h.catalogRepo.GetPricing(r.Context(), req.AppCode)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if pricing == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "App not found", nil)
		return
	}

	existing, err := h.subRepo.ListByTeam(r.Context(), tc.Team.ID)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	for _, sub := range existing {
		if sub.AppCode == req.AppCode && !subscriptions.Terminal(sub.Status) {
			errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Team is already subscribed to this app", nil)
			return
		}
	}

	now := time.Now()
	end, err := subscriptions.NextPeriod(now, req.BillingCycle)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	status := models.SubscriptionRegistered
	if h.policy.Name == access.PolicyTrial.Name {
		status = models.SubscriptionTrial
	}
	sub := &models.AppSubscription{
		ID:                 "sub_" + uuid.NewString(),
		TeamID:             tc.Team.ID,
		AppCode:            req.AppCode,
		Status:             status,
		BillingCycle:       req.BillingCycle,
		CurrentPeriodStart: now.Unix(),
		CurrentPeriodEnd:   end.Unix(),
		SubscribedAt:       now.Unix(),
		UpdatedAt:          now.Unix(),
	}
	if err := h.subRepo.Create(r.Context(), sub); err != nil {
		internalError(w, r, "Failed to create subscription", err)
		return
	}

	if status == models.SubscriptionRegistered {
		inv, err := subscriptions.NewInvoice(sub, pricing, now)
		if err != nil {
			internalError(w, r, "Failed to bill subscription", err)
			return
		}
		if err := h.invoiceRepo.Create(r.Context(), inv); err != nil {
			internalError(w, r, "Failed to create invoice", err)
			return
		}
	}

	h.dispatcher.Dispatch(r.Context(), sub, webhooks.EventSubscriptionCreated, sub)
	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), tc.Team.ID, "subscription.created", "subscription", sub.ID,
		map[string]interface{}{"app_code": sub.AppCode, "billing_cycle": sub.BillingCycle, "status": sub.Status})

	writeJSON(w, http.StatusCreated, sub)
}

type UpdateSubscriptionRequest struct {
	Status            *string `json:"status"`
	BillingCycle      *string `json:"billing_cycle" validate:"omitempty,oneof=monthly yearly"`
	CancelAtPeriodEnd *bool   `json:"cancel_at_period_end"`
}

// Update changes status, billing cycle or renewal. Status changes follow the
// lifecycle; a new billing cycle applies from the next period.
func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TeamFrom(r.Context())
	sub := middleware.SubscriptionFrom(r.Context())
	claims := claimsOf(r)

	var req UpdateSubscriptionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Status == nil && req.BillingCycle == nil && req.CancelAtPeriodEnd == nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Nothing to update", nil)
		return
	}
	if subscriptions.Terminal(sub.Status) {
		writeDomainError(w, r, subscriptions.ErrInvalidTransition)
		return
	}

	previous := sub.Status
	if req.Status != nil && *req.Status != sub.Status {
		if err := subscriptions.Transition(sub, *req.Status); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if req.BillingCycle != nil {
		sub.BillingCycle = *req.BillingCycle
	}
	if req.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *req.CancelAtPeriodEnd
	}

	if err := h.subRepo.Update(r.Context(), sub); err != nil {
		internalError(w, r, "Failed to update subscription", err)
		return
	}

	h.dispatcher.Dispatch(r.Context(), sub, webhooks.EventSubscriptionUpdated, sub)
	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), tc.Team.ID, "subscription.updated", "subscription", sub.ID,
		map[string]interface{}{"from": previous, "to": sub.Status, "billing_cycle": sub.BillingCycle})

	writeJSON(w, http.StatusOK, sub)
}
