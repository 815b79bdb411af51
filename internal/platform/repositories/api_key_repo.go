package repositories

import (
	"context"
	"database/sql"

	"suitehub/internal/platform/models"
)

type APIKeyRepository struct {
	db *sql.DB
}

func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

const apiKeyColumns = `id, subscription_id, name, key_prefix, key_hash, status, created_by, last_used_at, created_at, revoked_at`

func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, subscription_id, name, key_prefix, key_hash, status, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, key.ID, key.SubscriptionID, key.Name, key.KeyPrefix, key.KeyHash, key.Status, key.CreatedBy, key.CreatedAt)
	return err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	return r.getOne(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = ?`, id)
}

func (r *APIKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	return r.getOne(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = ?`, prefix)
}

func (r *APIKeyRepository) getOne(ctx context.Context, query string, arg string) (*models.APIKey, error) {
	key, err := scanAPIKey(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return key, nil
}

func (r *APIKeyRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*models.APIKey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE subscription_id = ? ORDER BY created_at ASC`, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []*models.APIKey{}
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// UpdateSecret swaps the stored prefix and hash in place.
func (r *APIKeyRepository) UpdateSecret(ctx context.Context, id, prefix, hash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET key_prefix = ?, key_hash = ? WHERE id = ?`, prefix, hash, id)
	return err
}

func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id string, timestamp int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, timestamp, id)
	return err
}

func (r *APIKeyRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	return err
}

func scanAPIKey(s scanner) (*models.APIKey, error) {
	var key models.APIKey
	var lastUsed, revoked sql.NullInt64
	err := s.Scan(&key.ID, &key.SubscriptionID, &key.Name, &key.KeyPrefix, &key.KeyHash, &key.Status, &key.CreatedBy,
		&lastUsed, &key.CreatedAt, &revoked)
	if err != nil {
		return nil, err
	}
	key.LastUsedAt = nullInt(lastUsed)
	key.RevokedAt = nullInt(revoked)
	return &key, nil
}
