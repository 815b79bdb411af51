// Package resources is the console's data layer: cached reads per resource
// key, values derived from them, and mutations that invalidate exactly the
// keys they change.
package resources

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"
	"suitehub/internal/console/query"
	"suitehub/internal/console/remote"
	"suitehub/internal/console/state"
	"suitehub/internal/engine/access"
	"suitehub/internal/platform/models"
)

// Resource names used as the first query key segment.
const (
	KeyTeams               = "teams"
	KeyInvitations         = "invitations"
	KeyTeamMembers         = "team-members"
	KeySubscriptions       = "subscriptions"
	KeySubscriptionMembers = "subscription-members"
	KeyAPIKeys             = "api-keys"
	KeyApps                = "apps"
	KeyAppPricing          = "app-pricing"
	KeyInvoices            = "invoices"
)

type Resources struct {
	client *remote.Client
	table  *query.Table
	state  *state.Store
	policy access.Policy
	logger zerolog.Logger

	// autoSelect re-picks the active team whenever the team list is
	// fetched and the stored selection is no longer in it.
	autoSelect bool
}

type Option func(*Resources)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Resources) { r.logger = l }
}

// WithAutoSelect turns the eager active-team correction on or off.
func WithAutoSelect(on bool) Option {
	return func(r *Resources) { r.autoSelect = on }
}

func New(client *remote.Client, table *query.Table, store *state.Store, policy access.Policy, opts ...Option) *Resources {
	r := &Resources{
		client:     client,
		table:      table,
		state:      store,
		policy:     policy,
		logger:     zerolog.Nop(),
		autoSelect: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resources) State() *state.Store { return r.state }

func (r *Resources) Policy() access.Policy { return r.policy }

func (r *Resources) invalidate(keys ...query.Key) {
	for _, k := range keys {
		n := r.table.Invalidate(k)
		r.logger.Debug().Str("key", k.String()).Int("dropped", n).Msg("invalidated")
	}
}

// Refresh drops the given keys, or every cached read when none are given.
func (r *Resources) Refresh(keys ...query.Key) {
	if len(keys) == 0 {
		keys = []query.Key{{}}
	}
	r.invalidate(keys...)
}

func teamQuery(p, teamID string) string {
	return p + "?team_id=" + url.QueryEscape(teamID)
}

func (r *Resources) OwnedTeams(ctx context.Context) ([]*models.Team, error) {
	return query.Fetch(ctx, r.table, query.NewKey(KeyTeams), func(ctx context.Context) ([]*models.Team, error) {
		return remote.Get[[]*models.Team](ctx, r.client, "/teams")
	})
}

// Invitations lists invitations addressed to the signed-in account, with
// their team embedded.
func (r *Resources) Invitations(ctx context.Context) ([]*models.Invitation, error) {
	return query.Fetch(ctx, r.table, query.NewKey(KeyInvitations), func(ctx context.Context) ([]*models.Invitation, error) {
		return remote.Get[[]*models.Invitation](ctx, r.client, "/invitations")
	})
}

func (r *Resources) TeamMembers(ctx context.Context, teamID string) ([]*models.TeamMember, error) {
	return query.Fetch(ctx, r.table, query.NewKey(KeyTeamMembers, teamID), func(ctx context.Context) ([]*models.TeamMember, error) {
		return remote.Get[[]*models.TeamMember](ctx, r.client, teamQuery("/team-members", teamID))
	})
}

func (r *Resources) Subscriptions(ctx context.Context, teamID string) ([]*models.AppSubscription, error) {
	return query.Fetch(ctx, r.table, query.NewKey(KeySubscriptions, teamID), func(ctx context.Context) ([]*models.AppSubscription, error) {
		return remote.Get[[]*models.AppSubscription](ctx, r.client, teamQuery("/subscriptions", teamID))
	})
}

func (r *Resources) SubscriptionMembers(ctx context.Context, subID string) ([]*models.Invitation, error) {
	return query.Fetch(ctx, r.table, query.NewKey(KeySubscriptionMembers, subID), func(ctx context.Context) ([]*models.Invitation, error) {
		return remote.Get[[]*models.Invitation](ctx, r.client, "/subscriptions/"+url.PathEscape(subID)+"/members")
	})
}

func (r *Resources) APIKeys(ctx context.Context, subID string) ([]*models.APIKey, error) {
	return query.Fetch(ctx, r.table, query.NewKey(KeyAPIKeys, subID), func(ctx context.Context) ([]*models.APIKey, error) {
		return remote.Get[[]*models.APIKey](ctx, r.client, "/subscriptions/"+url.PathEscape(subID)+"/api-keys")
	})
}

func (r *Resources) Apps(ctx context.Context) ([]*models.App, error) {
	return query.Fetch(ctx, r.table, query.NewKey(KeyApps), func(ctx context.Context) ([]*models.App, error) {
		return remote.Get[[]*models.App](ctx, r.client, "/apps")
	})
}

// AppPricing falls back to an empty price list when the endpoint is
// unavailable; pricing is informational.
func (r *Resources) AppPricing(ctx context.Context) ([]*models.AppPricing, error) {
	return query.Fetch(ctx, r.table, query.NewKey(KeyAppPricing), func(ctx context.Context) ([]*models.AppPricing, error) {
		return remote.GetWithFallback(ctx, r.client, "/app-pricing", []*models.AppPricing{})
	})
}

func (r *Resources) Invoices(ctx context.Context, teamID string) ([]*models.Invoice, error) {
	return query.Fetch(ctx, r.table, query.NewKey(KeyInvoices, teamID), func(ctx context.Context) ([]*models.Invoice, error) {
		return remote.Get[[]*models.Invoice](ctx, r.client, teamQuery("/invoices", teamID))
	})
}
