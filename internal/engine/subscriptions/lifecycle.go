package subscriptions

import (
	"errors"
	"fmt"
	"time"

	"suitehub/internal/platform/models"
)

var (
	ErrInvalidTransition = errors.New("invalid subscription status transition")
	ErrUnknownStatus     = errors.New("unknown subscription status")
	ErrUnknownCycle      = errors.New("unknown billing cycle")
)

var transitions = map[string][]string{
	models.SubscriptionTrial:      {models.SubscriptionActive, models.SubscriptionRegistered, models.SubscriptionCancelled, models.SubscriptionExpired},
	models.SubscriptionRegistered: {models.SubscriptionActive, models.SubscriptionCancelled, models.SubscriptionSuspended},
	models.SubscriptionActive:     {models.SubscriptionPastDue, models.SubscriptionCancelled, models.SubscriptionSuspended},
	models.SubscriptionPastDue:    {models.SubscriptionActive, models.SubscriptionSuspended, models.SubscriptionCancelled},
	models.SubscriptionSuspended:  {models.SubscriptionActive, models.SubscriptionCancelled},
	models.SubscriptionCancelled:  {},
	models.SubscriptionExpired:    {},
}

func ValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

func ValidCycle(cycle string) bool {
	return cycle == models.BillingMonthly || cycle == models.BillingYearly
}

// Terminal reports whether no transition leaves status.
func Terminal(status string) bool {
	next, ok := transitions[status]
	return ok && len(next) == 0
}

// CanTransition reports whether from → to is an allowed lifecycle step.
// Staying in the same status is not a transition.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves sub to status or explains why it cannot.
func Transition(sub *models.AppSubscription, to string) error {
	if !ValidStatus(to) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !CanTransition(sub.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, to)
	}
	sub.Status = to
	return nil
}

// NextPeriod returns the end of a billing period beginning at start.
func NextPeriod(start time.Time, cycle string) (time.Time, error) {
	switch cycle {
	case models.BillingMonthly:
		return start.AddDate(0, 1, 0), nil
	case models.BillingYearly:
		return start.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownCycle, cycle)
	}
}

// Sweep computes the status a subscription should have at now. It returns the
// current status and false when nothing is due.
func Sweep(sub *models.AppSubscription, now time.Time, grace time.Duration) (string, bool) {
	end := time.Unix(sub.CurrentPeriodEnd, 0)
	if now.Before(end) {
		return sub.Status, false
	}

	switch sub.Status {
	case models.SubscriptionTrial:
		if sub.CancelAtPeriodEnd {
			return models.SubscriptionCancelled, true
		}
		return models.SubscriptionExpired, true
	case models.SubscriptionRegistered, models.SubscriptionActive:
		if sub.CancelAtPeriodEnd {
			return models.SubscriptionCancelled, true
		}
		return models.SubscriptionPastDue, true
	case models.SubscriptionPastDue:
		if sub.CancelAtPeriodEnd {
			return models.SubscriptionCancelled, true
		}
		if !now.Before(end.Add(grace)) {
			return models.SubscriptionSuspended, true
		}
	}
	return sub.Status, false
}

// Renew starts the next paid period and activates the subscription. A period
// that lapsed long ago restarts at now.
func Renew(sub *models.AppSubscription, now time.Time) error {
	if sub.Status != models.SubscriptionActive {
		if err := Transition(sub, models.SubscriptionActive); err != nil {
			return err
		}
	}
	start := time.Unix(sub.CurrentPeriodEnd, 0)
	if start.Before(now.Add(-31 * 24 * time.Hour)) {
		start = now
	}
	end, err := NextPeriod(start, sub.BillingCycle)
	if err != nil {
		return err
	}
	sub.CurrentPeriodStart = start.Unix()
	sub.CurrentPeriodEnd = end.Unix()
	return nil
}
