package models

import "github.com/shopspring/decimal"

const (
	InvoiceDraft     = "draft"
	InvoicePending   = "pending"
	InvoicePaid      = "paid"
	InvoiceFailed    = "failed"
	InvoiceCancelled = "cancelled"
)

type InvoiceLineItem struct {
	Description string          `json:"description"`
	AppCode     string          `json:"app_code"`
	AppName     string          `json:"app_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type Invoice struct {
	ID            string            `json:"id"`
	InvoiceNumber string            `json:"invoice_number"`
	TeamID        string            `json:"team_id"`
	Status        string            `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	Tax           decimal.Decimal   `json:"tax"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	DueDate       int64             `json:"due_date"`
	PaidAt        *int64            `json:"paid_at,omitempty"`
	PeriodStart   int64             `json:"period_start"`
	PeriodEnd     int64             `json:"period_end"`
	LineItems     []InvoiceLineItem `json:"line_items"`
}

// Totals recomputes amount and total from line items and tax.
func (inv *Invoice) Totals() {
	amount := decimal.Zero
	for i := range inv.LineItems {
		item := &inv.LineItems[i]
		item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		amount = amount.Add(item.TotalPrice)
	}
	inv.Amount = amount
	inv.TotalAmount = amount.Add(inv.Tax)
}
