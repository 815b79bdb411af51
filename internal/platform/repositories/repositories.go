package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"suitehub/internal/platform/models"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type TeamRepository struct {
	db *sql.DB
}

func NewTeamRepository(db *sql.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

const teamColumns = `id, name, owner_email, verified, logo, status, billing_email, tax_id, address, created_at, updated_at`

func (r *TeamRepository) CreateTx(ctx context.Context, tx *sql.Tx, team *models.Team) error {
	return insertTeam(ctx, tx, team)
}

func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	return insertTeam(ctx, r.db, team)
}

func insertTeam(ctx context.Context, q Querier, team *models.Team) error {
	address, err := marshalAddress(team.Address)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO teams (`+teamColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, team.ID, team.Name, team.Owner, team.Verified, team.Logo, team.Status, team.BillingEmail, team.TaxID, address, team.CreatedAt, team.UpdatedAt)
	return err
}

func (r *TeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, id)
	team, err := scanTeam(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return team, nil
}

// ListByOwner returns the teams owned directly by email.
func (r *TeamRepository) ListByOwner(ctx context.Context, email string) ([]*models.Team, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE owner_email = ? ORDER BY created_at ASC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := []*models.Team{}
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (r *TeamRepository) Update(ctx context.Context, team *models.Team) error {
	address, err := marshalAddress(team.Address)
	if err != nil {
		return err
	}
	team.UpdatedAt = time.Now().Unix()
	_, err = r.db.ExecContext(ctx, `
		UPDATE teams SET name = ?, logo = ?, billing_email = ?, tax_id = ?, address = ?, updated_at = ?
		WHERE id = ?
	`, team.Name, team.Logo, team.BillingEmail, team.TaxID, address, team.UpdatedAt, team.ID)
	return err
}

func (r *TeamRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	status := models.TeamStatusPendingVerification
	if verified {
		status = models.TeamStatusActive
	}
	_, err := r.db.ExecContext(ctx, `UPDATE teams SET verified = ?, status = ?, updated_at = ? WHERE id = ?`,
		verified, status, time.Now().Unix(), id)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTeam(s scanner) (*models.Team, error) {
	var t models.Team
	var address sql.NullString
	err := s.Scan(&t.ID, &t.Name, &t.Owner, &t.Verified, &t.Logo, &t.Status, &t.BillingEmail, &t.TaxID, &address, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if address.Valid && address.String != "" {
		t.Address = &models.Address{}
		if err := json.Unmarshal([]byte(address.String), t.Address); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func marshalAddress(a *models.Address) (interface{}, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, display_name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, account.ID, account.Email, account.DisplayName, account.PasswordHash, account.CreatedAt)
	return err
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	account := &models.Account{}
	var lastLogin sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, last_login_at, created_at
		FROM accounts WHERE email = ?
	`, email).Scan(&account.ID, &account.Email, &account.DisplayName, &account.PasswordHash, &lastLogin, &account.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	account.LastLoginAt = nullInt(lastLogin)
	return account, nil
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, timestamp int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE accounts SET last_login_at = ? WHERE id = ?`, timestamp, id)
	return err
}

type MemberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberColumns = `id, team_id, user_id, email, display_name, role, status, joined_at`

func (r *MemberRepository) CreateTx(ctx context.Context, tx *sql.Tx, m *models.TeamMember) error {
	return upsertMember(ctx, tx, m)
}

// Upsert inserts the member or, when the email already belongs to the team,
// reactivates it with the new role.
func (r *MemberRepository) Upsert(ctx context.Context, m *models.TeamMember) error {
	return upsertMember(ctx, r.db, m)
}

func upsertMember(ctx context.Context, q Querier, m *models.TeamMember) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO team_members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (team_id, email) DO UPDATE SET role = excluded.role, status = excluded.status, joined_at = excluded.joined_at
	`, m.ID, m.TeamID, m.UserID, m.Email, m.DisplayName, m.Role, m.Status, m.JoinedAt)
	return err
}

func (r *MemberRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.TeamMember, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM team_members WHERE team_id = ? ORDER BY joined_at ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []*models.TeamMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *MemberRepository) GetByID(ctx context.Context, id string) (*models.TeamMember, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM team_members WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *MemberRepository) UpdateRole(ctx context.Context, id, role string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE team_members SET role = ? WHERE id = ?`, role, id)
	return err
}

func (r *MemberRepository) DeleteByTeamAndEmail(ctx context.Context, teamID, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = ? AND email = ? AND role != 'owner'`, teamID, email)
	return err
}

func scanMember(s scanner) (*models.TeamMember, error) {
	var m models.TeamMember
	var joined sql.NullInt64
	if err := s.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Email, &m.DisplayName, &m.Role, &m.Status, &joined); err != nil {
		return nil, err
	}
	m.JoinedAt = nullInt(joined)
	return &m, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
