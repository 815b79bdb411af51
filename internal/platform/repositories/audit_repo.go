package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"suitehub/internal/platform/models"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	meta, err := json.Marshal(entry.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, team_id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.TeamID, entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID, string(meta),
		entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	return err
}

// ListByTeam returns the newest entries first, at most limit of them.
func (r *AuditRepository) ListByTeam(ctx context.Context, teamID string, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, team_id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at
		FROM audit_logs WHERE team_id = ? ORDER BY created_at DESC LIMIT ?
	`, teamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.AuditLog{}
	for rows.Next() {
		var e models.AuditLog
		var meta string
		if err := rows.Scan(&e.ID, &e.TeamID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID, &meta,
			&e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		if meta != "" && meta != "null" {
			if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
				return nil, err
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
