package subscriptions

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"suitehub/internal/platform/models"
)

var (
	// TaxRate is the VAT applied to every invoice.
	TaxRate = decimal.RequireFromString("0.10")

	PaymentTerm = 14 * 24 * time.Hour
)

// NewInvoice bills one period of sub at the catalog price.
func NewInvoice(sub *models.AppSubscription, pricing *models.AppPricing, now time.Time) (*models.Invoice, error) {
	var unit int64
	switch sub.BillingCycle {
	case models.BillingMonthly:
		unit = pricing.Pricing.Monthly
	case models.BillingYearly:
		unit = pricing.Pricing.Yearly
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCycle, sub.BillingCycle)
	}

	id := uuid.New().String()
	inv := &models.Invoice{
		ID:            "invc_" + id,
		InvoiceNumber: fmt.Sprintf("INV-%s-%s", now.UTC().Format("200601"), strings.ToUpper(id[:8])),
		TeamID:        sub.TeamID,
		Status:        models.InvoicePending,
		DueDate:       now.Add(PaymentTerm).Unix(),
		PeriodStart:   sub.CurrentPeriodStart,
		PeriodEnd:     sub.CurrentPeriodEnd,
		LineItems: []models.InvoiceLineItem{{
			Description: fmt.Sprintf("%s (%s)", pricing.AppName, sub.BillingCycle),
			AppCode:     sub.AppCode,
			AppName:     pricing.AppName,
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(unit),
		}},
	}
	inv.Totals()
	inv.Tax = inv.Amount.Mul(TaxRate).Round(2)
	inv.Totals()
	return inv, nil
}

// Payable reports whether an invoice can still be paid.
func Payable(inv *models.Invoice) bool {
	return inv.Status == models.InvoicePending || inv.Status == models.InvoiceFailed
}
