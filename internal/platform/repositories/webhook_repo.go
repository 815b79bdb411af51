package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"suitehub/internal/platform/models"
)

type WebhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

const webhookColumns = `id, subscription_id, url, events, secret, status, retry_count, last_triggered_at, last_error, created_at, updated_at`

func (r *WebhookRepository) Create(ctx context.Context, webhook *models.Webhook) error {
	webhook.ID = "wh_" + uuid.New().String()
	webhook.CreatedAt = time.Now().Unix()
	webhook.UpdatedAt = webhook.CreatedAt
	webhook.Status = "active"

	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO webhooks (id, subscription_id, url, events, secret, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, webhook.ID, webhook.SubscriptionID, webhook.URL, string(eventsJSON), webhook.Secret, webhook.Status, webhook.CreatedAt, webhook.UpdatedAt)
	return err
}

func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*models.Webhook, error) {
	w, err := scanWebhook(r.db.QueryRowContext(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (r *WebhookRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.Webhook, error) {
	return r.list(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE subscription_id = ? ORDER BY created_at DESC`, subscriptionID)
}

// GetByEvent returns the active webhooks of a subscription subscribed to eventType.
func (r *WebhookRepository) GetByEvent(ctx context.Context, subscriptionID, eventType string) ([]*models.Webhook, error) {
	all, err := r.list(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE subscription_id = ? AND status = 'active'`, subscriptionID)
	if err != nil {
		return nil, err
	}

	matched := []*models.Webhook{}
	for _, w := range all {
		for _, e := range w.Events {
			if e == eventType || e == "*" {
				matched = append(matched, w)
				break
			}
		}
	}
	return matched, nil
}

func (r *WebhookRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Webhook, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	webhooks := []*models.Webhook{}
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM webhook_deliveries WHERE webhook_id = ?`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
	return err
}

func (r *WebhookRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE webhooks SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().Unix(), id)
	return err
}

// RecordSuccess stamps the trigger time and clears the failure counters.
func (r *WebhookRepository) RecordSuccess(ctx context.Context, id string, timestamp int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE webhooks SET last_triggered_at = ?, retry_count = 0, last_error = NULL WHERE id = ?`, timestamp, id)
	return err
}

func (r *WebhookRepository) RecordFailure(ctx context.Context, id string, timestamp int64, lastError string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE webhooks SET last_triggered_at = ?, retry_count = retry_count + 1, last_error = ? WHERE id = ?`,
		timestamp, lastError, id)
	return err
}

func (r *WebhookRepository) SaveDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	if d.ID == "" {
		d.ID = "whd_" + uuid.New().String()
	}
	now := time.Now().Unix()
	if d.CreatedAt == 0 {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (id, webhook_id, event_id, payload, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET attempts = excluded.attempts, last_error = excluded.last_error, updated_at = excluded.updated_at
	`, d.ID, d.WebhookID, d.EventID, d.Payload, d.Attempts, d.LastError, d.CreatedAt, d.UpdatedAt)
	return err
}

// ListPendingDeliveries returns failed deliveries with fewer than maxAttempts tries.
func (r *WebhookRepository) ListPendingDeliveries(ctx context.Context, maxAttempts int) ([]*models.WebhookDelivery, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, webhook_id, event_id, payload, attempts, last_error, created_at, updated_at
		FROM webhook_deliveries WHERE attempts < ? ORDER BY updated_at ASC
	`, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deliveries := []*models.WebhookDelivery{}
	for rows.Next() {
		var d models.WebhookDelivery
		if err := rows.Scan(&d.ID, &d.WebhookID, &d.EventID, &d.Payload, &d.Attempts, &d.LastError, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, &d)
	}
	return deliveries, rows.Err()
}

func (r *WebhookRepository) DeleteDelivery(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM webhook_deliveries WHERE id = ?`, id)
	return err
}

func scanWebhook(s scanner) (*models.Webhook, error) {
	var w models.Webhook
	var eventsStr string
	var lastTriggeredAt sql.NullInt64
	var lastError sql.NullString

	err := s.Scan(&w.ID, &w.SubscriptionID, &w.URL, &eventsStr, &w.Secret, &w.Status, &w.RetryCount, &lastTriggeredAt,
		&lastError, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastTriggeredAt.Valid {
		w.LastTriggeredAt = lastTriggeredAt.Int64
	}
	if lastError.Valid {
		w.LastError = lastError.String
	}
	if err := json.Unmarshal([]byte(eventsStr), &w.Events); err != nil {
		return nil, err
	}
	return &w, nil
}
