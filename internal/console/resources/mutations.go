package resources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"suitehub/internal/console/query"
	"suitehub/internal/console/remote"
	"suitehub/internal/console/state"
	"suitehub/internal/engine/access"
	"suitehub/internal/engine/subscriptions"
	"suitehub/internal/engine/teams"
	"suitehub/internal/platform/models"
)

type Credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type session struct {
	Account     *models.Account `json:"account"`
	AccessToken string          `json:"access_token"`
}

type Me struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Login stores the returned session. Every cached read belonged to the
// previous identity, so the whole table is dropped.
func (r *Resources) Login(ctx context.Context, creds Credentials) (*state.Session, error) {
	return r.startSession(ctx, "/auth/login", creds)
}

func (r *Resources) Signup(ctx context.Context, creds Credentials) (*state.Session, error) {
	return r.startSession(ctx, "/auth/signup", creds)
}

func (r *Resources) startSession(ctx context.Context, p string, creds Credentials) (*state.Session, error) {
	resp, err := remote.Post[Credentials, session](ctx, r.client, p, creds)
	if err != nil {
		return nil, err
	}

	sess := state.Session{AccessToken: resp.AccessToken, Email: strings.ToLower(strings.TrimSpace(creds.Email))}
	if resp.Account != nil {
		sess.UserID = resp.Account.ID
		sess.Email = resp.Account.Email
		sess.DisplayName = resp.Account.DisplayName
	}
	if err := r.state.SetSession(sess); err != nil {
		return nil, err
	}
	r.invalidate(query.Key{})
	return &sess, nil
}

func (r *Resources) Logout() error {
	r.invalidate(query.Key{})
	return r.state.Reset()
}

func (r *Resources) WhoAmI(ctx context.Context) (*Me, error) {
	me, err := remote.Get[Me](ctx, r.client, "/me")
	if err != nil {
		return nil, err
	}
	return &me, nil
}

type CreateTeamInput struct {
	Name         string          `json:"name"`
	Logo         string          `json:"logo,omitempty"`
	BillingEmail string          `json:"billing_email,omitempty"`
	TaxID        string          `json:"tax_id,omitempty"`
	Address      *models.Address `json:"address,omitempty"`
}

// CreateTeam creates a team owned by the signed-in account and selects it
// when nothing is selected yet.
func (r *Resources) CreateTeam(ctx context.Context, in CreateTeamInput) (*models.Team, error) {
	team, err := remote.Post[CreateTeamInput, *models.Team](ctx, r.client, "/teams", in)
	if err != nil {
		return nil, err
	}
	r.invalidate(query.NewKey(KeyTeams))
	if team != nil && r.state.ActiveTeamID() == "" {
		if err := r.state.SetActiveTeam(team.ID); err != nil {
			return team, err
		}
	}
	return team, nil
}

// UpdateTeam sends patch immediately. Profile fields need edit:team, billing
// fields need manage:billing.
func (r *Resources) UpdateTeam(ctx context.Context, teamID string, patch models.TeamPatch) (*models.Team, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("nothing to change")
	}
	if err := r.canEdit(ctx, teamID, patch); err != nil {
		return nil, err
	}
	team, err := remote.Patch[models.TeamPatch, *models.Team](ctx, r.client, "/teams/"+url.PathEscape(teamID), patch)
	if err != nil {
		return nil, err
	}
	r.invalidate(query.NewKey(KeyTeams))
	if err := r.state.DiscardEdit(teamID); err != nil {
		return team, err
	}
	return team, nil
}

func (r *Resources) canEdit(ctx context.Context, teamID string, patch models.TeamPatch) error {
	entries, err := r.MyTeams(ctx)
	if err != nil {
		return err
	}
	team, err := teams.ResolveActiveTeam(teams.Teams(entries), teamID)
	if err != nil {
		return err
	}
	members, err := r.TeamMembers(ctx, team.ID)
	if err != nil {
		return err
	}
	e := access.NewEvaluator(team, members, r.state.Email())
	if patch.TouchesProfile() && !e.Can(access.EditTeam) {
		return access.ErrNoPermission
	}
	billing := models.TeamPatch{BillingEmail: patch.BillingEmail, TaxID: patch.TaxID, Address: patch.Address}
	if !billing.Empty() && !e.Can(access.ManageBilling) {
		return access.ErrNoPermission
	}
	return nil
}

// StageTeamEdit records a local edit against the team's current server
// version without sending it.
func (r *Resources) StageTeamEdit(ctx context.Context, teamID string, patch models.TeamPatch) error {
	owned, err := r.OwnedTeams(ctx)
	if err != nil {
		return err
	}
	team, err := teams.ResolveActiveTeam(owned, teamID)
	if err != nil {
		return err
	}
	return r.state.StageTeamEdit(team.ID, patch, team.UpdatedAt)
}

type FlushResult struct {
	Sent  []string
	Stale []string
	Kept  []string
}

// FlushTeamEdits re-reads the team list, drops edits the server has moved
// past, and sends the rest. Edits for teams no longer listed stay pending.
func (r *Resources) FlushTeamEdits(ctx context.Context) (FlushResult, error) {
	var res FlushResult

	r.invalidate(query.NewKey(KeyTeams))
	owned, err := r.OwnedTeams(ctx)
	if err != nil {
		return res, err
	}
	if _, res.Stale, err = r.state.Overlay(owned); err != nil {
		return res, err
	}

	known := make(map[string]bool, len(owned))
	for _, t := range owned {
		known[t.ID] = true
	}
	for _, edit := range r.state.PendingEdits() {
		if !known[edit.TeamID] {
			res.Kept = append(res.Kept, edit.TeamID)
			continue
		}
		if _, err := r.UpdateTeam(ctx, edit.TeamID, edit.Patch); err != nil {
			return res, fmt.Errorf("team %s: %w", edit.TeamID, err)
		}
		res.Sent = append(res.Sent, edit.TeamID)
	}
	r.invalidate(query.NewKey(KeyTeams))
	return res, nil
}

// VerifyTeam is a platform operator action.
func (r *Resources) VerifyTeam(ctx context.Context, teamID string, verified bool) (*models.Team, error) {
	team, err := remote.Post[map[string]bool, *models.Team](ctx, r.client, "/teams/"+url.PathEscape(teamID)+"/verify",
		map[string]bool{"verified": verified})
	if err != nil {
		return nil, err
	}
	r.invalidate(query.NewKey(KeyTeams), query.NewKey(KeyInvitations))
	return team, nil
}

type subscribeInput struct {
	TeamID       string `json:"team_id"`
	AppCode      string `json:"app_code"`
	BillingCycle string `json:"billing_cycle,omitempty"`
}

// Subscribe checks the team may subscribe before calling the API, so the
// caller gets the specific reason.
func (r *Resources) Subscribe(ctx context.Context, appCode, cycle string) (*models.AppSubscription, error) {
	if cycle != "" && !subscriptions.ValidCycle(cycle) {
		return nil, fmt.Errorf("%w: %q", subscriptions.ErrUnknownCycle, cycle)
	}
	if err := r.CanSubscribe(ctx, appCode); err != nil {
		return nil, err
	}
	teamID := r.state.ActiveTeamID()

	sub, err := remote.Post[subscribeInput, *models.AppSubscription](ctx, r.client, "/subscriptions",
		subscribeInput{TeamID: teamID, AppCode: appCode, BillingCycle: cycle})
	if err != nil {
		return nil, err
	}
	r.invalidate(query.NewKey(KeySubscriptions, teamID), query.NewKey(KeyInvoices, teamID))
	return sub, nil
}

type subscriptionPatch struct {
	Status            *string `json:"status,omitempty"`
	BillingCycle      *string `json:"billing_cycle,omitempty"`
	CancelAtPeriodEnd *bool   `json:"cancel_at_period_end,omitempty"`
}

func (r *Resources) UpdateSubscriptionStatus(ctx context.Context, subID, status string) (*models.AppSubscription, error) {
	if !subscriptions.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", subscriptions.ErrUnknownStatus, status)
	}
	return r.updateSubscription(ctx, subID, subscriptionPatch{Status: &status})
}

func (r *Resources) SetCancelAtPeriodEnd(ctx context.Context, subID string, cancel bool) (*models.AppSubscription, error) {
	return r.updateSubscription(ctx, subID, subscriptionPatch{CancelAtPeriodEnd: &cancel})
}

func (r *Resources) updateSubscription(ctx context.Context, subID string, patch subscriptionPatch) (*models.AppSubscription, error) {
	team, err := r.require(ctx, access.ManageBilling)
	if err != nil {
		return nil, err
	}
	sub, err := remote.Patch[subscriptionPatch, *models.AppSubscription](ctx, r.client, "/subscriptions/"+url.PathEscape(subID), patch)
	if err != nil {
		return nil, err
	}
	r.invalidate(query.NewKey(KeySubscriptions, team.ID), query.NewKey(KeyInvoices, team.ID))
	return sub, nil
}

type inviteInput struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (r *Resources) InviteMember(ctx context.Context, subID, email, role string) (*models.Invitation, error) {
	team, err := r.require(ctx, access.InviteMembers)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleMember
	}
	inv, err := remote.Post[inviteInput, *models.Invitation](ctx, r.client, "/subscriptions/"+url.PathEscape(subID)+"/members",
		inviteInput{Email: email, Role: role})
	if err != nil {
		return nil, err
	}
	r.invalidate(query.NewKey(KeySubscriptionMembers, subID), query.NewKey(KeyTeamMembers, team.ID))
	return inv, nil
}

func (r *Resources) RemoveMember(ctx context.Context, subID, memberID string) error {
	team, err := r.require(ctx, access.ManageMembers)
	if err != nil {
		return err
	}
	if _, err := remote.Delete[struct{}](ctx, r.client, "/subscriptions/"+url.PathEscape(subID)+"/members/"+url.PathEscape(memberID)); err != nil {
		return err
	}
	r.invalidate(query.NewKey(KeySubscriptionMembers, subID), query.NewKey(KeyTeamMembers, team.ID))
	return nil
}

type publicInviteInput struct {
	TTLSeconds int64  `json:"ttl_seconds"`
	Role       string `json:"role,omitempty"`
}

type PublicInvite struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

// CreatePublicInvite changes nothing another query reads, so nothing is
// invalidated.
func (r *Resources) CreatePublicInvite(ctx context.Context, subID string, ttlSeconds int64, role string) (*PublicInvite, error) {
	if ttlSeconds <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}
	if _, err := r.require(ctx, access.InviteMembers); err != nil {
		return nil, err
	}
	link, err := remote.Post[publicInviteInput, PublicInvite](ctx, r.client, "/subscriptions/"+url.PathEscape(subID)+"/public-invite",
		publicInviteInput{TTLSeconds: ttlSeconds, Role: role})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *Resources) AcceptInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	inv, err := remote.Post[struct{}, *models.Invitation](ctx, r.client, "/invitations/"+url.PathEscape(id)+"/accept", struct{}{})
	if err != nil {
		return nil, err
	}
	r.invalidate(query.NewKey(KeyInvitations), query.NewKey(KeyTeams))
	return inv, nil
}

func (r *Resources) RedeemPublicInvite(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := remote.Post[struct{}, *models.Invitation](ctx, r.client, "/public-invites/"+url.PathEscape(token)+"/redeem", struct{}{})
	if err != nil {
		return nil, err
	}
	r.invalidate(query.NewKey(KeyInvitations), query.NewKey(KeyTeams))
	return inv, nil
}

type roleInput struct {
	Role string `json:"role"`
}

func (r *Resources) ChangeMemberRole(ctx context.Context, memberID, role string) (*models.TeamMember, error) {
	if !access.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	team, err := r.require(ctx, access.ManageMembers)
	if err != nil {
		return nil, err
	}
	member, err := remote.Patch[roleInput, *models.TeamMember](ctx, r.client, "/team-members/"+url.PathEscape(memberID),
		roleInput{Role: access.NormalizeRole(role)})
	if err != nil {
		return nil, err
	}
	r.invalidate(query.NewKey(KeyTeamMembers, team.ID))
	return member, nil
}

// integration resolves the subscription API key mutations act on, failing
// fast without an accessible one.
func (r *Resources) integration(ctx context.Context) (*models.AppSubscription, error) {
	sub, err := r.ActiveSubscription(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := r.require(ctx, access.ManageIntegrations); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *Resources) ActiveAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	sub, err := r.integration(ctx)
	if err != nil {
		return nil, err
	}
	return r.APIKeys(ctx, sub.ID)
}

type apiKeyInput struct {
	Name string `json:"name"`
}

// CreateAPIKey returns the secret once; later listings only carry the prefix.
func (r *Resources) CreateAPIKey(ctx context.Context, name string) (*models.IssuedAPIKey, error) {
	sub, err := r.integration(ctx)
	if err != nil {
		return nil, err
	}
	issued, err := remote.Post[apiKeyInput, *models.IssuedAPIKey](ctx, r.client, "/subscriptions/"+url.PathEscape(sub.ID)+"/api-keys",
		apiKeyInput{Name: name})
	if err != nil {
		return nil, err
	}
	r.invalidate(query.NewKey(KeyAPIKeys, sub.ID))
	return issued, nil
}

func (r *Resources) RegenerateAPIKey(ctx context.Context, keyID string) (*models.IssuedAPIKey, error) {
	sub, err := r.integration(ctx)
	if err != nil {
		return nil, err
	}
	issued, err := remote.Post[struct{}, *models.IssuedAPIKey](ctx, r.client,
		"/subscriptions/"+url.PathEscape(sub.ID)+"/api-keys/"+url.PathEscape(keyID)+"/regenerate", struct{}{})
	if err != nil {
		return nil, err
	}
	r.invalidate(query.NewKey(KeyAPIKeys, sub.ID))
	return issued, nil
}

func (r *Resources) DeleteAPIKey(ctx context.Context, keyID string) error {
	sub, err := r.integration(ctx)
	if err != nil {
		return err
	}
	if _, err := remote.Delete[struct{}](ctx, r.client, "/subscriptions/"+url.PathEscape(sub.ID)+"/api-keys/"+url.PathEscape(keyID)); err != nil {
		return err
	}
	r.invalidate(query.NewKey(KeyAPIKeys, sub.ID))
	return nil
}

func (r *Resources) PayInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	team, err := r.require(ctx, access.PayInvoices)
	if err != nil {
		return nil, err
	}
	inv, err := remote.Post[struct{}, *models.Invoice](ctx, r.client, "/invoices/"+url.PathEscape(invoiceID)+"/pay", struct{}{})
	if err != nil {
		return nil, err
	}
	// Paying renews the subscriptions on the invoice.
	r.invalidate(query.NewKey(KeyInvoices, team.ID), query.NewKey(KeySubscriptions, team.ID))
	return inv, nil
}
