package repositories

import (
	"context"
	"database/sql"
	"time"

	"suitehub/internal/platform/models"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, team_id, app_code, status, billing_cycle, current_period_start, current_period_end, cancel_at_period_end, subscribed_at, updated_at`

func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.AppSubscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.TeamID, sub.AppCode, sub.Status, sub.BillingCycle, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd, sub.SubscribedAt, sub.UpdatedAt)
	return err
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*models.AppSubscription, error) {
	sub, err := scanSubscription(r.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func (r *SubscriptionRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.AppSubscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE team_id = ? ORDER BY subscribed_at ASC`, teamID)
}

// ListDue returns subscriptions in a live status whose current period ended
// before the given timestamp.
func (r *SubscriptionRepository) ListDue(ctx context.Context, before int64) ([]*models.AppSubscription, error) {
	return r.list(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE current_period_end < ? AND status IN ('trial', 'registered', 'active', 'past_due')
		ORDER BY current_period_end ASC
	`, before)
}

func (r *SubscriptionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.AppSubscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []*models.AppSubscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Update persists status, period and cancellation fields.
func (r *SubscriptionRepository) Update(ctx context.Context, sub *models.AppSubscription) error {
	sub.UpdatedAt = time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = ?, billing_cycle = ?, current_period_start = ?, current_period_end = ?, cancel_at_period_end = ?, updated_at = ?
		WHERE id = ?
	`, sub.Status, sub.BillingCycle, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.UpdatedAt, sub.ID)
	return err
}

func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE subscriptions SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().Unix(), id)
	return err
}

func scanSubscription(s scanner) (*models.AppSubscription, error) {
	var sub models.AppSubscription
	err := s.Scan(&sub.ID, &sub.TeamID, &sub.AppCode, &sub.Status, &sub.BillingCycle, &sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd, &sub.SubscribedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
