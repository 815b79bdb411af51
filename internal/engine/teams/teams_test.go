package teams

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"suitehub/internal/platform/models"
)

func TestCompose_DedupOwnedWins(t *testing.T) {
	x := &models.Team{ID: "x", Name: "Shared"}
	owned := []*models.Team{{ID: "a"}, x}
	invited := []*models.Invitation{
		{Status: models.InvitationActive, Role: "billing_admin", Team: &models.Team{ID: "x", Name: "Shared (stale)"}},
		{Status: models.InvitationActive, Team: &models.Team{ID: "b"}},
		{Status: models.InvitationPending, Team: &models.Team{ID: "c"}},
		{Status: models.InvitationActive},
	}

	entries := Compose(owned, invited)
	require.Len(t, entries, 3)

	assert.Equal(t, "a", entries[0].Team.ID)
	assert.Equal(t, "x", entries[1].Team.ID)
	assert.Equal(t, ProvenanceOwned, entries[1].Provenance)
	assert.Same(t, x, entries[1].Team)
	assert.Equal(t, "b", entries[2].Team.ID)
	assert.Equal(t, ProvenanceMember, entries[2].Provenance)
	assert.Equal(t, models.RoleMember, entries[2].Role)

	count := 0
	for _, e := range entries {
		if e.Team.ID == "x" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCompose_EitherSourceMissing(t *testing.T) {
	invited := []*models.Invitation{{Status: models.InvitationActive, Role: "member", Team: &models.Team{ID: "b"}}}

	assert.Len(t, Compose(nil, invited), 1)
	assert.Len(t, Compose([]*models.Team{{ID: "a"}}, nil), 1)
	assert.Empty(t, Compose(nil, nil))
}

func TestResolveActiveTeam(t *testing.T) {
	list := []*models.Team{{ID: "t1"}, {ID: "t2"}}

	team, err := ResolveActiveTeam(list, "t2")
	require.NoError(t, err)
	assert.Equal(t, "t2", team.ID)

	team, err = ResolveActiveTeam(list, "gone")
	assert.ErrorIs(t, err, ErrTeamNotFound)
	assert.Nil(t, team)

	team, err = ResolveActiveTeam(list, "")
	assert.ErrorIs(t, err, ErrNoTeamSelected)
	assert.Nil(t, team)
}

func TestResolveActiveApp(t *testing.T) {
	apps := []*models.App{{Code: "crm", Published: true}, {Code: "pos", Published: false}}

	app, err := ResolveActiveApp(apps, "crm")
	require.NoError(t, err)
	assert.Equal(t, "crm", app.Code)

	_, err = ResolveActiveApp(apps, "pos")
	assert.ErrorIs(t, err, ErrAppNotFound)
	_, err = ResolveActiveApp(apps, "")
	assert.ErrorIs(t, err, ErrNoAppSelected)
}

func TestPickFallbackTeam(t *testing.T) {
	assert.Nil(t, PickFallbackTeam(nil))
	assert.Equal(t, "a", PickFallbackTeam([]*models.Team{{ID: "a"}, {ID: "b"}}).ID)
	assert.Equal(t, "b", PickFallbackTeam([]*models.Team{{ID: "a"}, {ID: "b", Verified: true}}).ID)
}
