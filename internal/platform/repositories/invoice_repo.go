package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"suitehub/internal/platform/models"
)

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, invoice_number, team_id, status, amount, tax, total_amount, due_date, paid_at, period_start, period_end, line_items`

func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	items, err := json.Marshal(inv.LineItems)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.ID, inv.InvoiceNumber, inv.TeamID, inv.Status, inv.Amount, inv.Tax, inv.TotalAmount, inv.DueDate,
		inv.PaidAt, inv.PeriodStart, inv.PeriodEnd, string(items))
	return err
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE team_id = ? ORDER BY period_start DESC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []*models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) MarkPaid(ctx context.Context, id string, paidAt int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE invoices SET status = ?, paid_at = ? WHERE id = ?`, models.InvoicePaid, paidAt, id)
	return err
}

// MarkOverdue fails every pending invoice whose due date passed and returns
// the number of invoices touched.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, now int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE invoices SET status = ? WHERE status = ? AND due_date < ?`,
		models.InvoiceFailed, models.InvoicePending, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanInvoice(s scanner) (*models.Invoice, error) {
	var inv models.Invoice
	var paidAt sql.NullInt64
	var items string
	err := s.Scan(&inv.ID, &inv.InvoiceNumber, &inv.TeamID, &inv.Status, &inv.Amount, &inv.Tax, &inv.TotalAmount,
		&inv.DueDate, &paidAt, &inv.PeriodStart, &inv.PeriodEnd, &items)
	if err != nil {
		return nil, err
	}
	inv.PaidAt = nullInt(paidAt)
	inv.LineItems = []models.InvoiceLineItem{}
	if items != "" {
		if err := json.Unmarshal([]byte(items), &inv.LineItems); err != nil {
			return nil, err
		}
	}
	return &inv, nil
}
