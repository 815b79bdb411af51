package teams

import (
	"errors"

	"suitehub/internal/platform/models"
)

var (
	ErrNoTeamSelected = errors.New("no team selected")
	ErrTeamNotFound   = errors.New("selected team no longer exists")
	ErrNoAppSelected  = errors.New("no app selected")
	ErrAppNotFound    = errors.New("selected app is not available")
)

const (
	ProvenanceOwned  = "owned"
	ProvenanceMember = "member"
)

// Entry is one team in the caller's combined list.
type Entry struct {
	Team       *models.Team `json:"team"`
	Provenance string       `json:"provenance"`
	Role       string       `json:"role"`
}

// Compose merges the caller's owned teams with teams reached through active
// invitations. Owned entries come first and win on duplicate ids; either
// input may be nil while its fetch is still in flight.
func Compose(owned []*models.Team, invited []*models.Invitation) []Entry {
	seen := make(map[string]bool, len(owned)+len(invited))
	entries := make([]Entry, 0, len(owned)+len(invited))

	for _, t := range owned {
		if t == nil || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		entries = append(entries, Entry{Team: t, Provenance: ProvenanceOwned, Role: models.RoleOwner})
	}

	for _, inv := range invited {
		if inv == nil || inv.Team == nil || inv.Status != models.InvitationActive {
			continue
		}
		if seen[inv.Team.ID] {
			continue
		}
		seen[inv.Team.ID] = true
		role := inv.Role
		if role == "" {
			role = models.RoleMember
		}
		entries = append(entries, Entry{Team: inv.Team, Provenance: ProvenanceMember, Role: role})
	}

	return entries
}

// Teams flattens composed entries.
func Teams(entries []Entry) []*models.Team {
	out := make([]*models.Team, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Team)
	}
	return out
}

// ResolveActiveTeam returns the team with the stored id from the freshest list.
// It never returns a team alongside an error.
func ResolveActiveTeam(list []*models.Team, id string) (*models.Team, error) {
	if id == "" {
		return nil, ErrNoTeamSelected
	}
	for _, t := range list {
		if t != nil && t.ID == id {
			return t, nil
		}
	}
	return nil, ErrTeamNotFound
}

// ResolveActiveApp does the same for the app catalog; unpublished apps are
// treated as gone.
func ResolveActiveApp(apps []*models.App, code string) (*models.App, error) {
	if code == "" {
		return nil, ErrNoAppSelected
	}
	for _, a := range apps {
		if a != nil && a.Code == code && a.Published {
			return a, nil
		}
	}
	return nil, ErrAppNotFound
}

// PickFallbackTeam chooses the team to select when the stored selection is
// invalid: the first verified team, else the first team.
func PickFallbackTeam(list []*models.Team) *models.Team {
	var first *models.Team
	for _, t := range list {
		if t == nil {
			continue
		}
		if t.Verified {
			return t
		}
		if first == nil {
			first = t
		}
	}
	return first
}
