package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"suitehub/internal/platform/models"
)

func strPtr(s string) *string { return &s }

func TestOpenMissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested", "state.json"))
	require.NoError(t, err)
	assert.Empty(t, s.ActiveTeamID())
	assert.Nil(t, s.Session())
	assert.Empty(t, s.Token())
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err := Open(path)
	assert.Error(t, err)
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "state.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetActiveTeam("team_1"))
	require.NoError(t, s.SetActiveApp("crm"))
	require.NoError(t, s.SetSession(Session{AccessToken: "tok", Email: "ann@acme.io"}))
	require.NoError(t, s.StageTeamEdit("team_1", models.TeamPatch{Name: strPtr("Acme Labs")}, 100))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "team_1", reopened.ActiveTeamID())
	assert.Equal(t, "crm", reopened.ActiveApp())
	assert.Equal(t, "tok", reopened.Token())
	assert.Equal(t, "ann@acme.io", reopened.Email())
	require.Len(t, reopened.PendingEdits(), 1)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestResetClearsSessionOnly(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	require.NoError(t, s.SetActiveTeam("team_1"))
	require.NoError(t, s.SetSession(Session{AccessToken: "tok"}))

	require.NoError(t, s.Reset())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.Session())
	assert.Equal(t, "team_1", s.ActiveTeamID())
}

func TestStageTeamEditValidation(t *testing.T) {
	s, _ := Open("")
	assert.Error(t, s.StageTeamEdit("", models.TeamPatch{Name: strPtr("x")}, 0))
	assert.Error(t, s.StageTeamEdit("team_1", models.TeamPatch{}, 0))
}

func TestStageTeamEditStacks(t *testing.T) {
	s, _ := Open("")
	require.NoError(t, s.StageTeamEdit("team_1", models.TeamPatch{Name: strPtr("One")}, 100))
	require.NoError(t, s.StageTeamEdit("team_1", models.TeamPatch{TaxID: strPtr("VAT1")}, 200))

	edits := s.PendingEdits()
	require.Len(t, edits, 1)
	assert.Equal(t, int64(100), edits[0].BaseUpdatedAt, "original base is kept")
	assert.Equal(t, "One", *edits[0].Patch.Name)
	assert.Equal(t, "VAT1", *edits[0].Patch.TaxID)
}

func TestOverlay(t *testing.T) {
	s, _ := Open("")
	require.NoError(t, s.StageTeamEdit("team_fresh", models.TeamPatch{Name: strPtr("Renamed")}, 100))
	require.NoError(t, s.StageTeamEdit("team_stale", models.TeamPatch{Name: strPtr("Lost")}, 100))
	require.NoError(t, s.StageTeamEdit("team_gone", models.TeamPatch{Name: strPtr("Elsewhere")}, 100))

	server := []*models.Team{
		{ID: "team_fresh", Name: "Fresh", UpdatedAt: 100},
		{ID: "team_stale", Name: "Server", UpdatedAt: 150},
		{ID: "team_plain", Name: "Plain", UpdatedAt: 10},
	}

	merged, stale, err := s.Overlay(server)
	require.NoError(t, err)
	require.Len(t, merged, 3)

	assert.Equal(t, "Renamed", merged[0].Name)
	assert.Equal(t, "Fresh", server[0].Name, "server values are not mutated")
	assert.Equal(t, "Server", merged[1].Name, "server wins over a stale edit")
	assert.Equal(t, "Plain", merged[2].Name)
	assert.Equal(t, []string{"team_stale"}, stale)

	var ids []string
	for _, e := range s.PendingEdits() {
		ids = append(ids, e.TeamID)
	}
	assert.Equal(t, []string{"team_fresh", "team_gone"}, ids)

	require.NoError(t, s.DiscardEdit("team_fresh"))
	merged, _, err = s.Overlay(server)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", merged[0].Name)
}
