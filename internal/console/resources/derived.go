package resources

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
	"suitehub/internal/engine/access"
	"suitehub/internal/engine/apikeys"
	"suitehub/internal/engine/subscriptions"
	"suitehub/internal/engine/teams"
	"suitehub/internal/platform/models"
)

var ErrAlreadySubscribed = errors.New("team is already subscribed to this app")

// MyTeams combines owned teams and teams joined through accepted
// invitations, with pending local edits applied. The two lists are fetched
// concurrently.
func (r *Resources) MyTeams(ctx context.Context) ([]teams.Entry, error) {
	var (
		owned   []*models.Team
		invited []*models.Invitation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owned, err = r.OwnedTeams(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		invited, err = r.Invitations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, stale, err := r.state.Overlay(owned)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to persist dropped edits")
	}
	for _, id := range stale {
		r.logger.Warn().Str("team_id", id).Msg("discarded local edit: team changed on the server")
	}

	entries := teams.Compose(merged, invited)
	if r.autoSelect {
		if _, err := r.correctActiveTeam(teams.Teams(entries)); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// correctActiveTeam replaces an invalid stored selection with the fallback
// team and persists it. It returns the selected team, or nil when the list
// is empty.
func (r *Resources) correctActiveTeam(list []*models.Team) (*models.Team, error) {
	current := r.state.ActiveTeamID()
	if team, err := teams.ResolveActiveTeam(list, current); err == nil {
		return team, nil
	}
	fallback := teams.PickFallbackTeam(list)
	if fallback == nil {
		return nil, nil
	}
	if err := r.state.SetActiveTeam(fallback.ID); err != nil {
		return nil, err
	}
	r.logger.Info().Str("from", current).Str("to", fallback.ID).Msg("active team changed")
	return fallback, nil
}

// ActiveTeam resolves the stored selection against the current team list.
// It returns teams.ErrNoTeamSelected or teams.ErrTeamNotFound rather than a
// stale team.
func (r *Resources) ActiveTeam(ctx context.Context) (*models.Team, error) {
	entries, err := r.MyTeams(ctx)
	if err != nil {
		return nil, err
	}
	return teams.ResolveActiveTeam(teams.Teams(entries), r.state.ActiveTeamID())
}

// EnsureActiveTeam always applies the fallback selection, whatever the
// auto-select setting.
func (r *Resources) EnsureActiveTeam(ctx context.Context) (*models.Team, error) {
	entries, err := r.MyTeams(ctx)
	if err != nil {
		return nil, err
	}
	team, err := r.correctActiveTeam(teams.Teams(entries))
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, teams.ErrNoTeamSelected
	}
	return team, nil
}

// SelectTeam stores id as the active team after checking it is in the list.
func (r *Resources) SelectTeam(ctx context.Context, id string) (*models.Team, error) {
	entries, err := r.MyTeams(ctx)
	if err != nil {
		return nil, err
	}
	team, err := teams.ResolveActiveTeam(teams.Teams(entries), id)
	if err != nil {
		return nil, err
	}
	return team, r.state.SetActiveTeam(team.ID)
}

func (r *Resources) ActiveApp(ctx context.Context) (*models.App, error) {
	apps, err := r.Apps(ctx)
	if err != nil {
		return nil, err
	}
	return teams.ResolveActiveApp(apps, r.state.ActiveApp())
}

func (r *Resources) SelectApp(ctx context.Context, code string) (*models.App, error) {
	apps, err := r.Apps(ctx)
	if err != nil {
		return nil, err
	}
	app, err := teams.ResolveActiveApp(apps, code)
	if err != nil {
		return nil, err
	}
	return app, r.state.SetActiveApp(app.Code)
}

// Permission builds the evaluator for the signed-in account in the active
// team.
func (r *Resources) Permission(ctx context.Context) (access.Evaluator, *models.Team, error) {
	team, err := r.ActiveTeam(ctx)
	if err != nil {
		return access.Evaluator{}, nil, err
	}
	members, err := r.TeamMembers(ctx, team.ID)
	if err != nil {
		return access.Evaluator{}, nil, err
	}
	return access.NewEvaluator(team, members, r.state.Email()), team, nil
}

// require fails with access.ErrNoPermission when the active role lacks p.
func (r *Resources) require(ctx context.Context, p access.Permission) (*models.Team, error) {
	e, team, err := r.Permission(ctx)
	if err != nil {
		return nil, err
	}
	if !e.Can(p) {
		return nil, access.ErrNoPermission
	}
	return team, nil
}

func (r *Resources) SubscriptionStatus(ctx context.Context, appCode string) (access.Status, error) {
	team, err := r.ActiveTeam(ctx)
	if err != nil {
		return access.Status{}, err
	}
	subs, err := r.Subscriptions(ctx, team.ID)
	if err != nil {
		return access.Status{}, err
	}
	return access.Gate(r.policy, subs, appCode), nil
}

// CanSubscribe returns nil when the active team may subscribe to appCode, or
// the reason it may not.
func (r *Resources) CanSubscribe(ctx context.Context, appCode string) error {
	team, err := r.ActiveTeam(ctx)
	if err != nil {
		if errors.Is(err, teams.ErrNoTeamSelected) || errors.Is(err, teams.ErrTeamNotFound) {
			return access.ErrNoTeamSelected
		}
		return err
	}
	members, err := r.TeamMembers(ctx, team.ID)
	if err != nil {
		return err
	}
	if err := access.CheckSubscribe(team, access.NewEvaluator(team, members, r.state.Email())); err != nil {
		return err
	}

	subs, err := r.Subscriptions(ctx, team.ID)
	if err != nil {
		return err
	}
	for _, s := range subs {
		if s.AppCode == appCode && !subscriptions.Terminal(s.Status) {
			return ErrAlreadySubscribed
		}
	}
	return nil
}

// ActiveSubscription is the active team's accessible subscription to the
// active app.
func (r *Resources) ActiveSubscription(ctx context.Context) (*models.AppSubscription, error) {
	app, err := r.ActiveApp(ctx)
	if err != nil {
		return nil, err
	}
	status, err := r.SubscriptionStatus(ctx, app.Code)
	if err != nil {
		return nil, err
	}
	if !status.CanAccess {
		return nil, apikeys.ErrNoActiveSubscription
	}
	return status.Subscription, nil
}
