// Package access maps team roles to capabilities and decides whether a team
// may use or subscribe to an app.
package access

import (
	"strings"

	"suitehub/internal/platform/models"
)

type Permission string

const (
	ViewBilling        Permission = "view:billing"
	ManageBilling      Permission = "manage:billing"
	ViewInvoices       Permission = "view:invoices"
	PayInvoices        Permission = "pay:invoices"
	InviteMembers      Permission = "invite:members"
	ManageMembers      Permission = "manage:members"
	EditTeam           Permission = "edit:team"
	SubscribeApps      Permission = "subscribe:apps"
	AccessApps         Permission = "access:apps"
	ManageIntegrations Permission = "manage:integrations"
)

// All lists every permission in display order.
var All = []Permission{
	ViewBilling, ManageBilling, ViewInvoices, PayInvoices, InviteMembers,
	ManageMembers, EditTeam, SubscribeApps, AccessApps, ManageIntegrations,
}

var rolePermissions = map[string]map[Permission]bool{
	models.RoleOwner: set(All...),
	models.RoleBillingAdmin: set(
		ViewBilling, ManageBilling, ViewInvoices, PayInvoices,
		SubscribeApps, AccessApps, ManageIntegrations,
	),
	models.RoleMember: set(ViewBilling, AccessApps),
}

func set(perms ...Permission) map[Permission]bool {
	m := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		m[p] = true
	}
	return m
}

func ParsePermission(s string) (Permission, bool) {
	for _, p := range All {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// NormalizeRole lowercases the role and folds the "admin" alias into
// billing_admin.
func NormalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "admin" {
		return models.RoleBillingAdmin
	}
	return role
}

// ValidRole reports whether role names a known tier after normalization.
func ValidRole(role string) bool {
	_, ok := rolePermissions[NormalizeRole(role)]
	return ok
}

// ResolveRole finds the caller's role in the team member list by email.
// Unknown callers get the lowest tier.
func ResolveRole(members []*models.TeamMember, email string) string {
	email = strings.TrimSpace(email)
	for _, m := range members {
		if m != nil && strings.EqualFold(m.Email, email) {
			return NormalizeRole(m.Role)
		}
	}
	return models.RoleMember
}

// Evaluator answers capability checks for one role in one team.
type Evaluator struct {
	Role         string
	TeamVerified bool
}

func NewEvaluator(team *models.Team, members []*models.TeamMember, email string) Evaluator {
	e := Evaluator{Role: ResolveRole(members, email)}
	if team != nil {
		e.TeamVerified = team.Verified
		// Owners are not always in the member list of legacy teams.
		if strings.EqualFold(team.Owner, strings.TrimSpace(email)) {
			e.Role = models.RoleOwner
		}
	}
	return e
}

func (e Evaluator) Can(p Permission) bool {
	if p == SubscribeApps && !e.TeamVerified {
		return false
	}
	return rolePermissions[NormalizeRole(e.Role)][p]
}

func (e Evaluator) HasRole(role string) bool {
	return NormalizeRole(e.Role) == NormalizeRole(role)
}

// Granted lists the permissions the evaluator allows, in display order.
func (e Evaluator) Granted() []Permission {
	granted := []Permission{}
	for _, p := range All {
		if e.Can(p) {
			granted = append(granted, p)
		}
	}
	return granted
}
