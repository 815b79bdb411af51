package access

import (
	"errors"
	"fmt"

	"suitehub/internal/platform/models"
)

var (
	ErrNoTeamSelected  = errors.New("no team selected")
	ErrTeamNotVerified = errors.New("team is not verified")
	ErrNoPermission    = errors.New("you do not have permission to perform this action")
)

// Policy names the subscription statuses that grant app access.
type Policy struct {
	Name       string
	Accessible []string
}

var (
	PolicyRegistered = Policy{Name: "registered", Accessible: []string{models.SubscriptionRegistered, models.SubscriptionActive}}
	PolicyTrial      = Policy{Name: "trial", Accessible: []string{models.SubscriptionTrial, models.SubscriptionActive}}
)

// ParsePolicy maps a configured policy name to its status set. An empty name
// selects PolicyRegistered.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", PolicyRegistered.Name:
		return PolicyRegistered, nil
	case PolicyTrial.Name:
		return PolicyTrial, nil
	default:
		return Policy{}, fmt.Errorf("unknown access policy %q", name)
	}
}

func (p Policy) Allows(status string) bool {
	for _, s := range p.Accessible {
		if s == status {
			return true
		}
	}
	return false
}

// Status is the gate's view of one app for one team.
type Status struct {
	Subscription *models.AppSubscription
	IsSubscribed bool
	CanAccess    bool
}

// Gate picks the team's subscription for appCode. An accessible subscription
// wins; otherwise the first subscription for the app is reported so callers
// can show its state.
func Gate(policy Policy, subs []*models.AppSubscription, appCode string) Status {
	var fallback *models.AppSubscription
	for _, sub := range subs {
		if sub == nil || sub.AppCode != appCode {
			continue
		}
		if policy.Allows(sub.Status) {
			return Status{Subscription: sub, IsSubscribed: true, CanAccess: true}
		}
		if fallback == nil {
			fallback = sub
		}
	}
	return Status{Subscription: fallback}
}

// CheckSubscribe explains why the caller may not subscribe the team to an app,
// or returns nil.
func CheckSubscribe(team *models.Team, e Evaluator) error {
	if team == nil {
		return ErrNoTeamSelected
	}
	if !team.Verified {
		return ErrTeamNotVerified
	}
	if !e.Can(SubscribeApps) {
		return ErrNoPermission
	}
	return nil
}
