package subscriptions

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"suitehub/internal/platform/models"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{models.SubscriptionTrial, models.SubscriptionActive, true},
		{models.SubscriptionTrial, models.SubscriptionExpired, true},
		{models.SubscriptionRegistered, models.SubscriptionActive, true},
		{models.SubscriptionRegistered, models.SubscriptionPastDue, false},
		{models.SubscriptionActive, models.SubscriptionPastDue, true},
		{models.SubscriptionPastDue, models.SubscriptionActive, true},
		{models.SubscriptionSuspended, models.SubscriptionActive, true},
		{models.SubscriptionCancelled, models.SubscriptionActive, false},
		{models.SubscriptionExpired, models.SubscriptionTrial, false},
		{models.SubscriptionActive, models.SubscriptionActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			sub := &models.AppSubscription{Status: tt.from}
			err := Transition(sub, tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, sub.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, sub.Status)
			}
		})
	}
}

func TestTransitionUnknownStatus(t *testing.T) {
	err := Transition(&models.AppSubscription{Status: models.SubscriptionActive}, "paused")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(models.SubscriptionCancelled))
	assert.True(t, Terminal(models.SubscriptionExpired))
	assert.False(t, Terminal(models.SubscriptionActive))
	assert.False(t, Terminal("bogus"))
}

func TestNextPeriod(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	end, err := NextPeriod(start, models.BillingMonthly)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), end)

	end, err = NextPeriod(start, models.BillingYearly)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC), end)

	_, err = NextPeriod(start, "weekly")
	assert.ErrorIs(t, err, ErrUnknownCycle)
}

func TestSweep(t *testing.T) {
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	after := end.Add(time.Hour)
	grace := 7 * 24 * time.Hour

	tests := []struct {
		name    string
		sub     models.AppSubscription
		now     time.Time
		want    string
		changed bool
	}{
		{"not due", models.AppSubscription{Status: models.SubscriptionActive}, end.Add(-time.Hour), models.SubscriptionActive, false},
		{"trial expires", models.AppSubscription{Status: models.SubscriptionTrial}, after, models.SubscriptionExpired, true},
		{"active lapses", models.AppSubscription{Status: models.SubscriptionActive}, after, models.SubscriptionPastDue, true},
		{"registered lapses", models.AppSubscription{Status: models.SubscriptionRegistered}, after, models.SubscriptionPastDue, true},
		{"cancel at period end", models.AppSubscription{Status: models.SubscriptionActive, CancelAtPeriodEnd: true}, after, models.SubscriptionCancelled, true},
		{"past due within grace", models.AppSubscription{Status: models.SubscriptionPastDue}, after, models.SubscriptionPastDue, false},
		{"past due beyond grace", models.AppSubscription{Status: models.SubscriptionPastDue}, end.Add(grace), models.SubscriptionSuspended, true},
		{"terminal untouched", models.AppSubscription{Status: models.SubscriptionCancelled}, after, models.SubscriptionCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := tt.sub
			sub.CurrentPeriodEnd = end.Unix()
			got, changed := Sweep(&sub, tt.now, grace)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestRenew(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	sub := &models.AppSubscription{Status: models.SubscriptionPastDue, BillingCycle: models.BillingMonthly, CurrentPeriodEnd: end.Unix()}
	require.NoError(t, Renew(sub, now))
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, end.Unix(), sub.CurrentPeriodStart)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).Unix(), sub.CurrentPeriodEnd)

	stale := &models.AppSubscription{Status: models.SubscriptionSuspended, BillingCycle: models.BillingMonthly, CurrentPeriodEnd: end.AddDate(-1, 0, 0).Unix()}
	require.NoError(t, Renew(stale, now))
	assert.Equal(t, now.Unix(), stale.CurrentPeriodStart)

	dead := &models.AppSubscription{Status: models.SubscriptionCancelled, BillingCycle: models.BillingMonthly}
	assert.ErrorIs(t, Renew(dead, now), ErrInvalidTransition)
}

func TestNewInvoice(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	sub := &models.AppSubscription{TeamID: "team_1", AppCode: "crm", BillingCycle: models.BillingMonthly, CurrentPeriodStart: 1, CurrentPeriodEnd: 2}
	pricing := &models.AppPricing{AppCode: "crm", AppName: "Suite CRM", Pricing: models.Pricing{Monthly: 299000, Yearly: 2990000}}

	inv, err := NewInvoice(sub, pricing, now)
	require.NoError(t, err)
	assert.Equal(t, "team_1", inv.TeamID)
	assert.Equal(t, models.InvoicePending, inv.Status)
	assert.Contains(t, inv.InvoiceNumber, "INV-202605-")
	assert.True(t, inv.Amount.Equal(decimal.NewFromInt(299000)))
	assert.True(t, inv.Tax.Equal(decimal.NewFromInt(29900)))
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(328900)))
	assert.Equal(t, now.Add(PaymentTerm).Unix(), inv.DueDate)
	assert.True(t, Payable(inv))

	sub.BillingCycle = "weekly"
	_, err = NewInvoice(sub, pricing, now)
	assert.ErrorIs(t, err, ErrUnknownCycle)
}
