package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"suitehub/internal/platform/models"
)

type InvitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

const invitationColumns = `id, team_id, subscription_id, app_code, email, role, status, invited_by, created_at, updated_at`

func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invitations (`+invitationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.ID, inv.TeamID, inv.SubscriptionID, inv.AppCode, inv.Email, inv.Role, inv.Status, inv.InvitedBy, inv.CreatedAt, inv.UpdatedAt)
	return err
}

func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

func (r *InvitationRepository) GetBySubscriptionAndEmail(ctx context.Context, subscriptionID, email string) (*models.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE subscription_id = ? AND email = ?`, subscriptionID, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

// ListBySubscription returns the subscription's member list.
func (r *InvitationRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE subscription_id = ? ORDER BY created_at ASC`, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invitations := []*models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// ListByEmail returns every invitation addressed to email with its team embedded.
func (r *InvitationRepository) ListByEmail(ctx context.Context, email string) ([]*models.Invitation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.team_id, i.subscription_id, i.app_code, i.email, i.role, i.status, i.invited_by, i.created_at, i.updated_at,
			t.id, t.name, t.owner_email, t.verified, t.logo, t.status, t.billing_email, t.tax_id, t.address, t.created_at, t.updated_at
		FROM invitations i
		JOIN teams t ON t.id = i.team_id
		WHERE i.email = ?
		ORDER BY i.created_at ASC
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invitations := []*models.Invitation{}
	for rows.Next() {
		var inv models.Invitation
		var team models.Team
		var address sql.NullString
		err := rows.Scan(&inv.ID, &inv.TeamID, &inv.SubscriptionID, &inv.AppCode, &inv.Email, &inv.Role, &inv.Status,
			&inv.InvitedBy, &inv.CreatedAt, &inv.UpdatedAt,
			&team.ID, &team.Name, &team.Owner, &team.Verified, &team.Logo, &team.Status, &team.BillingEmail, &team.TaxID,
			&address, &team.CreatedAt, &team.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if address.Valid && address.String != "" {
			team.Address = &models.Address{}
			if err := json.Unmarshal([]byte(address.String), team.Address); err != nil {
				return nil, err
			}
		}
		inv.Team = &team
		invitations = append(invitations, &inv)
	}
	return invitations, rows.Err()
}

func (r *InvitationRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE invitations SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().Unix(), id)
	return err
}

func (r *InvitationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	return err
}

func scanInvitation(s scanner) (*models.Invitation, error) {
	var inv models.Invitation
	err := s.Scan(&inv.ID, &inv.TeamID, &inv.SubscriptionID, &inv.AppCode, &inv.Email, &inv.Role, &inv.Status,
		&inv.InvitedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

type PublicInviteRepository struct {
	db *sql.DB
}

func NewPublicInviteRepository(db *sql.DB) *PublicInviteRepository {
	return &PublicInviteRepository{db: db}
}

func (r *PublicInviteRepository) Create(ctx context.Context, invite *models.PublicInvite) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO public_invites (token, subscription_id, role, expires_at, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, invite.Token, invite.SubscriptionID, invite.Role, invite.ExpiresAt, invite.CreatedBy, invite.CreatedAt)
	return err
}

func (r *PublicInviteRepository) Get(ctx context.Context, token string) (*models.PublicInvite, error) {
	invite := &models.PublicInvite{}
	err := r.db.QueryRowContext(ctx, `
		SELECT token, subscription_id, role, expires_at, created_by, created_at
		FROM public_invites WHERE token = ?
	`, token).Scan(&invite.Token, &invite.SubscriptionID, &invite.Role, &invite.ExpiresAt, &invite.CreatedBy, &invite.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return invite, nil
}

func (r *PublicInviteRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM public_invites WHERE token = ?)`, token).Scan(&exists)
	return exists, err
}

// DeleteExpired removes links that expired before now and reports how many.
func (r *PublicInviteRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM public_invites WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
