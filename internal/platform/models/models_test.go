package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceTotals(t *testing.T) {
	inv := &Invoice{
		Tax: decimal.RequireFromString("10.00"),
		LineItems: []InvoiceLineItem{
			{AppCode: "crm", Quantity: 2, UnitPrice: decimal.RequireFromString("25.50")},
			{AppCode: "hrm", Quantity: 1, UnitPrice: decimal.RequireFromString("49")},
		},
	}
	inv.Totals()

	assert.True(t, inv.LineItems[0].TotalPrice.Equal(decimal.RequireFromString("51")))
	assert.True(t, inv.Amount.Equal(decimal.RequireFromString("100")))
	assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString("110")))
}

func TestInvoiceJSONAmountsAreStrings(t *testing.T) {
	inv := Invoice{ID: "invc_1", Amount: decimal.RequireFromString("12.5")}
	raw, err := json.Marshal(inv)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":"12.5"`)
}

func TestTeamPatch(t *testing.T) {
	name := "Acme Labs"
	email := "billing@acme.io"
	team := &Team{ID: "team_1", Name: "Acme", BillingEmail: "old@acme.io"}

	billingOnly := TeamPatch{BillingEmail: &email}
	assert.False(t, billingOnly.Empty())
	assert.False(t, billingOnly.TouchesProfile())

	patch := TeamPatch{Name: &name, BillingEmail: &email, Address: &Address{City: "Hanoi"}}
	assert.True(t, patch.TouchesProfile())
	patch.Apply(team)

	assert.Equal(t, "Acme Labs", team.Name)
	assert.Equal(t, "billing@acme.io", team.BillingEmail)
	require.NotNil(t, team.Address)
	assert.Equal(t, "Hanoi", team.Address.City)

	patch.Address.City = "Hue"
	assert.Equal(t, "Hanoi", team.Address.City, "applied address must be a copy")

	assert.True(t, TeamPatch{}.Empty())
}
