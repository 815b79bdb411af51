package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"suitehub/internal/engine/invitelinks"
	"suitehub/internal/platform/models"
)

func (r *root) membersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "members",
		Aliases: []string{"member"},
		Short:   "Manage who can use the active app",
	}
	cmd.AddCommand(
		r.membersListCmd(),
		r.membersInviteCmd(),
		r.membersRemoveCmd(),
		r.membersRoleCmd(),
	)
	return cmd
}

// subscriptionFor is the accessible subscription of the active team to
// appCode, or to the active app when appCode is empty.
func (r *root) subscriptionFor(ctx context.Context, appCode string) (*models.AppSubscription, error) {
	if appCode == "" {
		return r.res().ActiveSubscription(ctx)
	}
	sub, err := r.currentSubscription(ctx, appCode)
	if err != nil {
		return nil, err
	}
	if !r.res().Policy().Allows(sub.Status) {
		return nil, fmt.Errorf("the subscription to %s is %s", appCode, sub.Status)
	}
	return sub, nil
}

func (r *root) membersListCmd() *cobra.Command {
	var (
		appCode string
		team    bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the subscription's members, or the whole team with --team",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()
			tw := newTable(cmd.OutOrStdout())

			if team {
				t, err := r.res().EnsureActiveTeam(ctx)
				if err != nil {
					return err
				}
				members, err := r.res().TeamMembers(ctx, t.ID)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tSTATUS\tJOINED")
				for _, m := range members {
					joined := "-"
					if m.JoinedAt != nil {
						joined = formatDate(*m.JoinedAt)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", m.ID, m.Email, orDash(m.DisplayName), m.Role, m.Status, joined)
				}
				return tw.Flush()
			}

			sub, err := r.subscriptionFor(ctx, appCode)
			if err != nil {
				return err
			}
			invites, err := r.res().SubscriptionMembers(ctx, sub.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "ID\tEMAIL\tROLE\tSTATUS\tINVITED BY\tINVITED")
			for _, inv := range invites {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", inv.ID, inv.Email, inv.Role, inv.Status, orDash(inv.InvitedBy), formatDate(inv.CreatedAt))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&appCode, "app", "", "app code (defaults to the active app)")
	cmd.Flags().BoolVar(&team, "team", false, "list every member of the active team")
	return cmd
}

func (r *root) membersInviteCmd() *cobra.Command {
	var appCode, role string

	cmd := &cobra.Command{
		Use:   "invite <email>",
		Short: "Invite someone to the active app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()
			sub, err := r.subscriptionFor(ctx, appCode)
			if err != nil {
				return err
			}
			inv, err := r.res().InviteMember(ctx, sub.ID, args[0], role)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.demoNotice(out) {
				return nil
			}
			fmt.Fprintf(out, "Invited %s as %s (%s)\n", inv.Email, inv.Role, inv.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&appCode, "app", "", "app code (defaults to the active app)")
	cmd.Flags().StringVar(&role, "role", models.RoleMember, "role: member, billing_admin or owner")
	return cmd
}

func (r *root) membersRemoveCmd() *cobra.Command {
	var appCode string

	cmd := &cobra.Command{
		Use:   "remove <invitation-id>",
		Short: "Revoke a member's access to the active app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()
			sub, err := r.subscriptionFor(ctx, appCode)
			if err != nil {
				return err
			}
			if err := r.res().RemoveMember(ctx, sub.ID, args[0]); err != nil {
				return err
			}
			if r.demoNotice(cmd.OutOrStdout()) {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&appCode, "app", "", "app code (defaults to the active app)")
	return cmd
}

func (r *root) membersRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "role <member-id> <role>",
		Short: "Change a team member's role",
		Long: `Change the role of a member of the active team. Roles are member and
billing_admin; ownership cannot be transferred this way.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			m, err := r.res().ChangeMemberRole(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if r.demoNotice(cmd.OutOrStdout()) {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", m.Email, m.Role)
			return nil
		},
	}
}

func (r *root) inviteLinkCmd() *cobra.Command {
	var (
		appCode string
		role    string
		qrPath  string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "invite-link",
		Short: "Create a shareable invite link for the active app",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()
			sub, err := r.subscriptionFor(ctx, appCode)
			if err != nil {
				return err
			}
			link, err := r.res().CreatePublicInvite(ctx, sub.ID, int64(ttl/time.Second), role)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.demoNotice(out) {
				return nil
			}
			share := link.Token
			fmt.Fprintf(out, "Token:   %s\n", link.Token)
			if r.app.JoinURL != "" {
				share = invitelinks.JoinURL(r.app.JoinURL, link.Token)
				fmt.Fprintf(out, "Link:    %s\n", share)
			}
			fmt.Fprintf(out, "Role:    %s\n", link.Role)
			fmt.Fprintf(out, "Expires: %s\n", formatTime(link.ExpiresAt))
			fmt.Fprintln(out, "Share the token; it is redeemed with `suitehub invitations redeem <token>`.")

			if qrPath != "" {
				png, err := invitelinks.QRCode(share, 0)
				if err != nil {
					return err
				}
				if err := os.WriteFile(qrPath, png, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(out, "QR code written to %s\n", qrPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&appCode, "app", "", "app code (defaults to the active app)")
	cmd.Flags().StringVar(&role, "role", models.RoleMember, "role granted on redeem")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "how long the link stays valid")
	cmd.Flags().StringVar(&qrPath, "qr", "", "also write the link as a PNG QR code to this path")
	return cmd
}
