package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"suitehub/internal/platform/models"
)

func TestCanSubscribeRequiresRoleAndVerification(t *testing.T) {
	roles := []string{"owner", "billing_admin", "admin", "member", "guest", ""}
	for _, role := range roles {
		for _, verified := range []bool{false, true} {
			e := Evaluator{Role: role, TeamVerified: verified}
			privileged := role == "owner" || role == "billing_admin" || role == "admin"
			want := privileged && verified
			if got := e.Can(SubscribeApps); got != want {
				t.Errorf("role=%q verified=%v: Can(subscribe:apps) = %v, want %v", role, verified, got, want)
			}
		}
	}
}

func TestOwnerVerificationScenario(t *testing.T) {
	team := &models.Team{ID: "t1", Owner: "o@acme.io", Verified: false}
	members := []*models.TeamMember{{Email: "o@acme.io", Role: "owner"}}

	e := NewEvaluator(team, members, "o@acme.io")
	assert.False(t, e.Can(SubscribeApps))

	team.Verified = true
	e = NewEvaluator(team, members, "o@acme.io")
	assert.True(t, e.Can(SubscribeApps))
}

func TestRoleTable(t *testing.T) {
	tests := []struct {
		role    string
		granted []Permission
	}{
		{"owner", All},
		{"billing_admin", []Permission{ViewBilling, ManageBilling, ViewInvoices, PayInvoices, SubscribeApps, AccessApps, ManageIntegrations}},
		{"member", []Permission{ViewBilling, AccessApps}},
		{"unknown", []Permission{}},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			e := Evaluator{Role: tt.role, TeamVerified: true}
			assert.Equal(t, tt.granted, e.Granted())
		})
	}
}

func TestResolveRole(t *testing.T) {
	members := []*models.TeamMember{
		{Email: "Ann@Acme.io", Role: "admin"},
		{Email: "bob@acme.io", Role: "owner"},
	}

	assert.Equal(t, models.RoleBillingAdmin, ResolveRole(members, "ann@acme.io"))
	assert.Equal(t, models.RoleOwner, ResolveRole(members, " BOB@acme.io "))
	assert.Equal(t, models.RoleMember, ResolveRole(members, "stranger@acme.io"))
	assert.Equal(t, models.RoleMember, ResolveRole(nil, "stranger@acme.io"))
	assert.Equal(t, models.RoleMember, ResolveRole([]*models.TeamMember{nil}, ""))
}

func TestHasRole(t *testing.T) {
	e := Evaluator{Role: "admin"}
	assert.True(t, e.HasRole("billing_admin"))
	assert.True(t, e.HasRole("ADMIN"))
	assert.False(t, e.HasRole("owner"))
}

func TestParsePermission(t *testing.T) {
	p, ok := ParsePermission("pay:invoices")
	assert.True(t, ok)
	assert.Equal(t, PayInvoices, p)

	_, ok = ParsePermission("delete:everything")
	assert.False(t, ok)
}

func TestGate(t *testing.T) {
	subs := []*models.AppSubscription{
		{ID: "s1", AppCode: "crm", Status: models.SubscriptionCancelled},
		{ID: "s2", AppCode: "crm", Status: models.SubscriptionTrial},
		{ID: "s3", AppCode: "hrm", Status: models.SubscriptionRegistered},
	}

	t.Run("trial policy accepts trial", func(t *testing.T) {
		st := Gate(PolicyTrial, subs, "crm")
		assert.True(t, st.IsSubscribed)
		assert.True(t, st.CanAccess)
		assert.Equal(t, "s2", st.Subscription.ID)
	})

	t.Run("registered policy rejects trial but reports it", func(t *testing.T) {
		st := Gate(PolicyRegistered, subs, "crm")
		assert.False(t, st.IsSubscribed)
		assert.False(t, st.CanAccess)
		assert.Equal(t, "s1", st.Subscription.ID)
	})

	t.Run("registered policy accepts registered", func(t *testing.T) {
		st := Gate(PolicyRegistered, subs, "hrm")
		assert.True(t, st.CanAccess)
	})

	t.Run("no subscription", func(t *testing.T) {
		st := Gate(PolicyRegistered, subs, "pos")
		assert.Nil(t, st.Subscription)
		assert.False(t, st.IsSubscribed)
	})
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, "registered", p.Name)

	p, err = ParsePolicy("trial")
	assert.NoError(t, err)
	assert.True(t, p.Allows(models.SubscriptionTrial))

	_, err = ParsePolicy("everything")
	assert.Error(t, err)
}

func TestCheckSubscribePrecedence(t *testing.T) {
	owner := Evaluator{Role: "owner", TeamVerified: true}
	member := Evaluator{Role: "member", TeamVerified: true}

	assert.ErrorIs(t, CheckSubscribe(nil, owner), ErrNoTeamSelected)
	assert.ErrorIs(t, CheckSubscribe(&models.Team{Verified: false}, Evaluator{Role: "member"}), ErrTeamNotVerified)
	assert.ErrorIs(t, CheckSubscribe(&models.Team{Verified: true}, member), ErrNoPermission)
	assert.NoError(t, CheckSubscribe(&models.Team{Verified: true}, owner))
}
