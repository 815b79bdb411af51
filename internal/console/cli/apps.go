package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"suitehub/internal/engine/teams"
	"suitehub/internal/platform/models"
)

func (r *root) appsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apps",
		Aliases: []string{"app"},
		Short:   "Browse apps and manage the active team's subscriptions",
	}
	cmd.AddCommand(
		r.appsListCmd(),
		r.appsUseCmd(),
		r.appsStatusCmd(),
		r.appsSubscribeCmd(),
		r.appsSetStatusCmd(),
		r.appsCancelCmd(),
	)
	return cmd
}

// appArg resolves the optional app argument without changing the
// selection, falling back to the active app.
func (r *root) appArg(ctx context.Context, args []string) (*models.App, error) {
	if len(args) == 0 {
		return r.res().ActiveApp(ctx)
	}
	apps, err := r.res().Apps(ctx)
	if err != nil {
		return nil, err
	}
	return teams.ResolveActiveApp(apps, args[0])
}

func noTeam(err error) bool {
	return errors.Is(err, teams.ErrNoTeamSelected) || errors.Is(err, teams.ErrTeamNotFound)
}

func (r *root) appsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List apps with pricing and the active team's subscription state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()

			apps, err := r.res().Apps(ctx)
			if err != nil {
				return err
			}
			pricing, err := r.res().AppPricing(ctx)
			if err != nil {
				return err
			}
			prices := make(map[string]models.Pricing, len(pricing))
			for _, p := range pricing {
				prices[p.AppCode] = p.Pricing
			}

			active := r.res().State().ActiveApp()
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "\tCODE\tNAME\tMONTHLY\tYEARLY\tSUBSCRIPTION\tACCESS")
			for _, app := range apps {
				subStatus, canAccess := "-", "-"
				st, err := r.res().SubscriptionStatus(ctx, app.Code)
				switch {
				case err == nil:
					if st.Subscription != nil {
						subStatus = st.Subscription.Status
					}
					canAccess = yesNo(st.CanAccess)
				case !noTeam(err):
					return err
				}

				monthly, yearly := "-", "-"
				if p, ok := prices[app.Code]; ok {
					monthly, yearly = fmt.Sprint(p.Monthly), fmt.Sprint(p.Yearly)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					marker(app.Code == active), app.Code, app.Name, monthly, yearly, subStatus, canAccess)
			}
			return tw.Flush()
		},
	}
}

func (r *root) appsUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <app-code>",
		Short: "Select the active app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			app, err := r.res().SelectApp(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active app: %s (%s)\n", app.Name, app.Code)
			return nil
		},
	}
}

func (r *root) appsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [app-code]",
		Short: "Show the active team's subscription to an app",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()

			app, err := r.appArg(ctx, args)
			if err != nil {
				return err
			}
			team, err := r.res().EnsureActiveTeam(ctx)
			if err != nil {
				return err
			}
			st, err := r.res().SubscriptionStatus(ctx, app.Code)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "Team:\t%s (%s)\n", team.Name, team.ID)
			fmt.Fprintf(tw, "App:\t%s (%s)\n", app.Name, app.Code)
			fmt.Fprintf(tw, "Subscribed:\t%s\n", yesNo(st.IsSubscribed))
			fmt.Fprintf(tw, "Can access:\t%s\n", yesNo(st.CanAccess))
			if sub := st.Subscription; sub != nil {
				fmt.Fprintf(tw, "Subscription:\t%s\n", sub.ID)
				fmt.Fprintf(tw, "Status:\t%s\n", sub.Status)
				fmt.Fprintf(tw, "Billing cycle:\t%s\n", sub.BillingCycle)
				fmt.Fprintf(tw, "Current period:\t%s to %s\n", formatDate(sub.CurrentPeriodStart), formatDate(sub.CurrentPeriodEnd))
				fmt.Fprintf(tw, "Cancel at period end:\t%s\n", yesNo(sub.CancelAtPeriodEnd))
			}
			if err := r.res().CanSubscribe(ctx, app.Code); err != nil {
				fmt.Fprintf(tw, "Can subscribe:\tno (%s)\n", Describe(err))
			} else {
				fmt.Fprintf(tw, "Can subscribe:\tyes\n")
			}
			fmt.Fprintf(tw, "Access policy:\t%s\n", r.res().Policy().Name)
			return tw.Flush()
		},
	}
}

func (r *root) appsSubscribeCmd() *cobra.Command {
	var cycle string

	cmd := &cobra.Command{
		Use:   "subscribe [app-code]",
		Short: "Subscribe the active team to an app",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()

			app, err := r.appArg(ctx, args)
			if err != nil {
				return err
			}
			sub, err := r.res().Subscribe(ctx, app.Code, cycle)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.demoNotice(out) {
				return nil
			}
			fmt.Fprintf(out, "Subscribed to %s: %s (%s, %s)\n", app.Name, sub.ID, sub.Status, sub.BillingCycle)
			fmt.Fprintln(out, "An invoice was issued. Pay it with `suitehub invoices pay <id>`.")
			return nil
		},
	}
	cmd.Flags().StringVar(&cycle, "cycle", models.BillingMonthly, "billing cycle (monthly or yearly)")
	return cmd
}

// currentSubscription is the active team's subscription to the app, whatever
// its status.
func (r *root) currentSubscription(ctx context.Context, appCode string) (*models.AppSubscription, error) {
	app, err := r.appArg(ctx, optional(appCode))
	if err != nil {
		return nil, err
	}
	st, err := r.res().SubscriptionStatus(ctx, app.Code)
	if err != nil {
		return nil, err
	}
	if st.Subscription == nil {
		return nil, fmt.Errorf("the active team has no subscription to %s", app.Code)
	}
	return st.Subscription, nil
}

func optional(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func (r *root) appsSetStatusCmd() *cobra.Command {
	var appCode string

	cmd := &cobra.Command{
		Use:   "set-status <status>",
		Short: "Move the subscription to another lifecycle status",
		Long: `Change the status of the active team's subscription. Valid statuses are
trial, registered, active, past_due, suspended, cancelled and expired; the
server rejects transitions the lifecycle does not allow.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()
			sub, err := r.currentSubscription(ctx, appCode)
			if err != nil {
				return err
			}
			updated, err := r.res().UpdateSubscriptionStatus(ctx, sub.ID, args[0])
			if err != nil {
				return err
			}
			if r.demoNotice(cmd.OutOrStdout()) {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Subscription %s is now %s\n", updated.ID, updated.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&appCode, "app", "", "app code (defaults to the active app)")
	return cmd
}

func (r *root) appsCancelCmd() *cobra.Command {
	var (
		appCode string
		undo    bool
	)

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the subscription at the end of the current period",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()
			sub, err := r.currentSubscription(ctx, appCode)
			if err != nil {
				return err
			}
			if _, err := r.res().SetCancelAtPeriodEnd(ctx, sub.ID, !undo); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.demoNotice(out) {
				return nil
			}
			if undo {
				fmt.Fprintf(out, "Subscription %s will renew\n", sub.ID)
			} else {
				fmt.Fprintf(out, "Subscription %s ends on %s\n", sub.ID, formatDate(sub.CurrentPeriodEnd))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&appCode, "app", "", "app code (defaults to the active app)")
	cmd.Flags().BoolVar(&undo, "undo", false, "keep renewing")
	return cmd
}
