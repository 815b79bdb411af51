package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"suitehub/internal/api/middleware"
	"suitehub/internal/engine/subscriptions"
	"suitehub/internal/engine/webhooks"
	"suitehub/internal/pkg/errors"
	"suitehub/internal/platform/audit"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

type InvoiceHandler struct {
	invoiceRepo *repositories.InvoiceRepository
	subRepo     *repositories.SubscriptionRepository
	dispatcher  *webhooks.Dispatcher
	audit       *audit.Logger
}

func NewInvoiceHandler(invoiceRepo *repositories.InvoiceRepository, subRepo *repositories.SubscriptionRepository, dispatcher *webhooks.Dispatcher, auditLog *audit.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceRepo: invoiceRepo,
		subRepo:     subRepo,
		dispatcher:  dispatcher,
		audit:       auditLog,
	}
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TeamFrom(r.Context())

	invoices, err := h.invoiceRepo.ListByTeam(r.Context(), tc.Team.ID)
	if err != nil {
		internalError(w, r, "Failed to list invoices", err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// Pay settles an invoice and renews every subscription it bills.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TeamFrom(r.Context())
	claims := claimsOf(r)

	inv, err := h.invoiceRepo.GetByID(r.Context(), middleware.Param(r, "id"))
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	if inv == nil || inv.TeamID != tc.Team.ID {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Invoice not found", nil)
		return
	}
	if !subscriptions.Payable(inv) {
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Invoice is not payable", nil)
		return
	}

	now := time.Now()
	if err := h.invoiceRepo.MarkPaid(r.Context(), inv.ID, now.Unix()); err != nil {
		internalError(w, r, "Failed to record payment", err)
		return
	}
	paidAt := now.Unix()
	inv.Status = models.InvoicePaid
	inv.PaidAt = &paidAt

	subs, err := h.subRepo.ListByTeam(r.Context(), tc.Team.ID)
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	for _, item := range inv.LineItems {
		for _, sub := range subs {
			if sub.AppCode != item.AppCode || subscriptions.Terminal(sub.Status) {
				continue
			}
			if err := subscriptions.Renew(sub, now); err != nil {
				log.Warn().Err(err).Str("subscription_id", sub.ID).Str("invoice_id", inv.ID).Msg("paid invoice did not renew subscription")
				continue
			}
			if err := h.subRepo.Update(r.Context(), sub); err != nil {
				internalError(w, r, "Failed to renew subscription", err)
				return
			}
			h.dispatcher.Dispatch(r.Context(), sub, webhooks.EventInvoicePaid, inv)
		}
	}

	h.audit.Log(audit.ActorFromRequest(r, claims.UserID), tc.Team.ID, "invoice.paid", "invoice", inv.ID,
		map[string]interface{}{"invoice_number": inv.InvoiceNumber, "total_amount": inv.TotalAmount.String()})

	writeJSON(w, http.StatusOK, inv)
}
