package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"suitehub/internal/platform/database/dbtest"
	"suitehub/internal/platform/models"
)

func seedTeam(t *testing.T, db *sql.DB, id, owner string, verified bool) *models.Team {
	t.Helper()
	now := time.Now().Unix()
	team := &models.Team{
		ID: id, Name: "Team " + id, Owner: owner, Verified: verified,
		Status: models.TeamStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, NewTeamRepository(db).Create(context.Background(), team))
	return team
}

func seedSubscription(t *testing.T, db *sql.DB, id, teamID, app, status string) *models.AppSubscription {
	t.Helper()
	now := time.Now().Unix()
	sub := &models.AppSubscription{
		ID: id, TeamID: teamID, AppCode: app, Status: status, BillingCycle: models.BillingMonthly,
		CurrentPeriodStart: now, CurrentPeriodEnd: now + 3600, SubscribedAt: now, UpdatedAt: now,
	}
	require.NoError(t, NewSubscriptionRepository(db).Create(context.Background(), sub))
	return sub
}

func TestTeamRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM teams WHERE id = ?").
		WithArgs("team_missing").
		WillReturnError(sql.ErrNoRows)

	team, err := NewTeamRepository(db).GetByID(context.Background(), "team_missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if team != nil {
		t.Errorf("expected nil team, got %+v", team)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestTeamRepository_GetByID_DecodesAddress(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "owner_email", "verified", "logo", "status", "billing_email", "tax_id", "address", "created_at", "updated_at"}).
		AddRow("team_1", "Acme", "owner@acme.io", true, "", "active", "billing@acme.io", "", `{"city":"Hanoi","country":"VN"}`, 100, 200)
	mock.ExpectQuery("SELECT (.+) FROM teams WHERE id = ?").WithArgs("team_1").WillReturnRows(rows)

	team, err := NewTeamRepository(db).GetByID(context.Background(), "team_1")
	require.NoError(t, err)
	require.NotNil(t, team)
	assert.True(t, team.Verified)
	require.NotNil(t, team.Address)
	assert.Equal(t, "Hanoi", team.Address.City)
}

func TestTeamRepository_RoundTrip(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewTeamRepository(db)

	seedTeam(t, db, "team_a", "owner@acme.io", false)
	seedTeam(t, db, "team_b", "other@acme.io", true)

	owned, err := repo.ListByOwner(ctx, "owner@acme.io")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "team_a", owned[0].ID)

	team := owned[0]
	team.BillingEmail = "billing@acme.io"
	team.Address = &models.Address{City: "Da Nang"}
	require.NoError(t, repo.Update(ctx, team))
	require.NoError(t, repo.SetVerified(ctx, "team_a", true))

	got, err := repo.GetByID(ctx, "team_a")
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.Equal(t, models.TeamStatusActive, got.Status)
	assert.Equal(t, "billing@acme.io", got.BillingEmail)
	assert.Equal(t, "Da Nang", got.Address.City)
}

func TestMemberRepository_UpsertKeepsOneRowPerEmail(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	seedTeam(t, db, "team_a", "owner@acme.io", true)
	repo := NewMemberRepository(db)

	now := time.Now().Unix()
	require.NoError(t, repo.Upsert(ctx, &models.TeamMember{ID: "mem_1", TeamID: "team_a", Email: "ann@acme.io", Role: models.RoleMember, Status: models.MemberStatusActive, JoinedAt: &now}))
	require.NoError(t, repo.Upsert(ctx, &models.TeamMember{ID: "mem_2", TeamID: "team_a", Email: "ann@acme.io", Role: models.RoleBillingAdmin, Status: models.MemberStatusActive, JoinedAt: &now}))

	members, err := repo.ListByTeam(ctx, "team_a")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "mem_1", members[0].ID)
	assert.Equal(t, models.RoleBillingAdmin, members[0].Role)

	require.NoError(t, repo.UpdateRole(ctx, "mem_1", models.RoleMember))
	m, err := repo.GetByID(ctx, "mem_1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, m.Role)
}

func TestSubscriptionRepository_ListDue(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	seedTeam(t, db, "team_a", "owner@acme.io", true)
	seedSubscription(t, db, "sub_1", "team_a", "crm", models.SubscriptionActive)
	seedSubscription(t, db, "sub_2", "team_a", "hrm", models.SubscriptionCancelled)

	repo := NewSubscriptionRepository(db)
	due, err := repo.ListDue(ctx, time.Now().Add(2*time.Hour).Unix())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "sub_1", due[0].ID)

	none, err := repo.ListDue(ctx, time.Now().Unix())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInvitationRepository_ListByEmailEmbedsTeam(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	seedTeam(t, db, "team_a", "owner@acme.io", true)
	seedSubscription(t, db, "sub_1", "team_a", "crm", models.SubscriptionActive)

	repo := NewInvitationRepository(db)
	now := time.Now().Unix()
	require.NoError(t, repo.Create(ctx, &models.Invitation{
		ID: "inv_1", TeamID: "team_a", SubscriptionID: "sub_1", AppCode: "crm", Email: "bob@acme.io",
		Role: models.RoleMember, Status: models.InvitationPending, CreatedAt: now, UpdatedAt: now,
	}))

	list, err := repo.ListByEmail(ctx, "bob@acme.io")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Team)
	assert.Equal(t, "team_a", list[0].Team.ID)

	require.NoError(t, repo.UpdateStatus(ctx, "inv_1", models.InvitationActive))
	inv, err := repo.GetBySubscriptionAndEmail(ctx, "sub_1", "bob@acme.io")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationActive, inv.Status)

	require.NoError(t, repo.Delete(ctx, "inv_1"))
	inv, err = repo.GetByID(ctx, "inv_1")
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestPublicInviteRepository_DeleteExpired(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	seedTeam(t, db, "team_a", "owner@acme.io", true)
	seedSubscription(t, db, "sub_1", "team_a", "crm", models.SubscriptionActive)

	repo := NewPublicInviteRepository(db)
	now := time.Now().Unix()
	require.NoError(t, repo.Create(ctx, &models.PublicInvite{Token: "old", SubscriptionID: "sub_1", Role: "member", ExpiresAt: now - 10, CreatedAt: now}))
	require.NoError(t, repo.Create(ctx, &models.PublicInvite{Token: "new", SubscriptionID: "sub_1", Role: "member", ExpiresAt: now + 600, CreatedAt: now}))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, err := repo.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := repo.Get(ctx, "new")
	require.NoError(t, err)
	assert.NotNil(t, kept)

	exists, err := repo.TokenExists(ctx, "new")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.TokenExists(ctx, "old")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAPIKeyRepository_UpdateSecret(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	seedTeam(t, db, "team_a", "owner@acme.io", true)
	seedSubscription(t, db, "sub_1", "team_a", "crm", models.SubscriptionActive)

	repo := NewAPIKeyRepository(db)
	require.NoError(t, repo.Create(ctx, &models.APIKey{
		ID: "key_1", SubscriptionID: "sub_1", Name: "ci", KeyPrefix: "shk_live_aaaaaaa", KeyHash: "h1",
		Status: models.APIKeyActive, CreatedAt: time.Now().Unix(),
	}))
	require.NoError(t, repo.UpdateSecret(ctx, "key_1", "shk_live_bbbbbbb", "h2"))

	old, err := repo.GetByPrefix(ctx, "shk_live_aaaaaaa")
	require.NoError(t, err)
	assert.Nil(t, old)

	key, err := repo.GetByPrefix(ctx, "shk_live_bbbbbbb")
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, "h2", key.KeyHash)
	assert.Nil(t, key.LastUsedAt)
}

func TestInvoiceRepository_DecimalAndOverdue(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	seedTeam(t, db, "team_a", "owner@acme.io", true)

	repo := NewInvoiceRepository(db)
	now := time.Now().Unix()
	inv := &models.Invoice{
		ID: "invc_1", InvoiceNumber: "INV-1", TeamID: "team_a", Status: models.InvoicePending,
		Tax: decimal.RequireFromString("1.25"), DueDate: now - 1, PeriodStart: now, PeriodEnd: now + 10,
		LineItems: []models.InvoiceLineItem{{AppCode: "crm", Quantity: 1, UnitPrice: decimal.RequireFromString("10.50")}},
	}
	inv.Totals()
	require.NoError(t, repo.Create(ctx, inv))

	n, err := repo.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, "invc_1")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceFailed, got.Status)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("11.75")))
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "crm", got.LineItems[0].AppCode)
}

func TestCatalogRepository_Seeded(t *testing.T) {
	db := dbtest.New(t)
	repo := NewCatalogRepository(db)

	apps, err := repo.ListApps(context.Background())
	require.NoError(t, err)
	assert.Len(t, apps, 3)

	pricing, err := repo.GetPricing(context.Background(), "crm")
	require.NoError(t, err)
	require.NotNil(t, pricing)
	assert.Equal(t, int64(299000), pricing.Pricing.Monthly)
	assert.Contains(t, pricing.Features, "Pipelines")

	missing, err := repo.GetPricing(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWebhookRepository_DeliveriesAndEvents(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	seedTeam(t, db, "team_a", "owner@acme.io", true)
	seedSubscription(t, db, "sub_1", "team_a", "crm", models.SubscriptionActive)

	repo := NewWebhookRepository(db)
	wh := &models.Webhook{SubscriptionID: "sub_1", URL: "https://example.com/hook", Events: []string{"subscription.updated"}, Secret: "s"}
	require.NoError(t, repo.Create(ctx, wh))

	matched, err := repo.GetByEvent(ctx, "sub_1", "subscription.updated")
	require.NoError(t, err)
	assert.Len(t, matched, 1)
	matched, err = repo.GetByEvent(ctx, "sub_1", "api_key.created")
	require.NoError(t, err)
	assert.Empty(t, matched)

	d := &models.WebhookDelivery{WebhookID: wh.ID, EventID: "evt_1", Payload: []byte(`{}`), Attempts: 1, LastError: "boom"}
	require.NoError(t, repo.SaveDelivery(ctx, d))
	d.Attempts = 2
	require.NoError(t, repo.SaveDelivery(ctx, d))

	pending, err := repo.ListPendingDeliveries(ctx, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Attempts)

	pending, err = repo.ListPendingDeliveries(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, repo.Delete(ctx, wh.ID))
	gone, err := repo.GetByID(ctx, wh.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestAuditRepository_ListByTeam(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	repo := NewAuditRepository(db)

	for i, action := range []string{"team.created", "team.updated"} {
		require.NoError(t, repo.Insert(ctx, &models.AuditLog{
			ID: action, TeamID: "team_a", UserID: "acct_1", Action: action, ResourceType: "team", ResourceID: "team_a",
			Metadata: map[string]interface{}{"n": i}, CreatedAt: int64(100 + i),
		}))
	}

	entries, err := repo.ListByTeam(ctx, "team_a", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "team.updated", entries[0].Action)
	assert.EqualValues(t, 1, entries[0].Metadata["n"])
}
