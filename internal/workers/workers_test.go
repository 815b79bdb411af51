package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"suitehub/internal/platform/database/dbtest"
	"suitehub/internal/platform/metrics"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

func TestWorkers(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	day := int64(24 * 60 * 60)

	require.NoError(t, repositories.NewTeamRepository(db).Create(ctx, &models.Team{
		ID: "team_1", Name: "Acme", Owner: "owner@acme.io", Status: models.TeamStatusActive,
	}))

	subRepo := repositories.NewSubscriptionRepository(db)
	seed := []*models.AppSubscription{
		{ID: "sub_trial", AppCode: "crm", Status: models.SubscriptionTrial, CurrentPeriodEnd: now.Unix() - day},
		{ID: "sub_active", AppCode: "hrm", Status: models.SubscriptionActive, CurrentPeriodEnd: now.Unix() - day},
		{ID: "sub_late", AppCode: "pos", Status: models.SubscriptionPastDue, CurrentPeriodEnd: now.Unix() - 30*day},
		{ID: "sub_current", AppCode: "crm", Status: models.SubscriptionActive, CurrentPeriodEnd: now.Unix() + day},
	}
	for _, sub := range seed {
		sub.TeamID = "team_1"
		sub.BillingCycle = models.BillingMonthly
		require.NoError(t, subRepo.Create(ctx, sub))
	}

	invoiceRepo := repositories.NewInvoiceRepository(db)
	require.NoError(t, invoiceRepo.Create(ctx, &models.Invoice{
		ID: "invc_1", InvoiceNumber: "INV-1", TeamID: "team_1", Status: models.InvoicePending,
		Amount: decimal.Zero, Tax: decimal.Zero, TotalAmount: decimal.Zero, DueDate: now.Unix() - day,
		LineItems: []models.InvoiceLineItem{},
	}))

	inviteRepo := repositories.NewPublicInviteRepository(db)
	require.NoError(t, inviteRepo.Create(ctx, &models.PublicInvite{Token: "old", SubscriptionID: "sub_active", Role: "member", ExpiresAt: now.Unix() - 1}))
	require.NoError(t, inviteRepo.Create(ctx, &models.PublicInvite{Token: "fresh", SubscriptionID: "sub_active", Role: "member", ExpiresAt: now.Unix() + 3600}))

	w := New(subRepo, invoiceRepo, inviteRepo, nil, metrics.New(), 7*24*time.Hour)
	w.now = func() time.Time { return now }

	t.Run("SweepSubscriptions", func(t *testing.T) {
		changed, err := w.SweepSubscriptions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, changed)

		want := map[string]string{
			"sub_trial":   models.SubscriptionExpired,
			"sub_active":  models.SubscriptionPastDue,
			"sub_late":    models.SubscriptionSuspended,
			"sub_current": models.SubscriptionActive,
		}
		for id, status := range want {
			sub, err := subRepo.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, status, sub.Status, id)
		}

		changed, err = w.SweepSubscriptions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, changed, "a second sweep at the same instant is a no-op")
	})

	t.Run("MarkOverdueInvoices", func(t *testing.T) {
		n, err := w.MarkOverdueInvoices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		inv, err := invoiceRepo.GetByID(ctx, "invc_1")
		require.NoError(t, err)
		assert.Equal(t, models.InvoiceFailed, inv.Status)
	})

	t.Run("PurgeInvites", func(t *testing.T) {
		n, err := w.PurgeInvites(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		fresh, err := inviteRepo.Get(ctx, "fresh")
		require.NoError(t, err)
		assert.NotNil(t, fresh)
	})

	t.Run("RetryWebhooks without dispatcher", func(t *testing.T) {
		n, err := w.RetryWebhooks(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32

	done := make(chan struct{})
	go func() {
		Run(ctx, []Job{
			{Name: "counter", Interval: 10 * time.Millisecond, Run: func(context.Context) (int, error) {
				if atomic.AddInt32(&runs, 1) == 3 {
					cancel()
				}
				return 0, nil
			}},
			{Name: "disabled", Interval: 0},
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(3))
}
