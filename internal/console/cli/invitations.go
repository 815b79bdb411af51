package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (r *root) invitationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invitations",
		Aliases: []string{"invites"},
		Short:   "Invitations addressed to you",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List your invitations",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := r.requireSession(); err != nil {
					return err
				}
				invites, err := r.res().Invitations(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(invites) == 0 {
					fmt.Fprintln(out, "No invitations.")
					return nil
				}
				tw := newTable(out)
				fmt.Fprintln(tw, "ID\tTEAM\tAPP\tROLE\tSTATUS\tINVITED BY")
				for _, inv := range invites {
					team := inv.TeamID
					if inv.Team != nil {
						team = inv.Team.Name
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", inv.ID, team, inv.AppCode, inv.Role, inv.Status, orDash(inv.InvitedBy))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "accept <invitation-id>",
			Short: "Accept an invitation and join the team",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := r.requireSession(); err != nil {
					return err
				}
				inv, err := r.res().AcceptInvitation(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if r.demoNotice(cmd.OutOrStdout()) {
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Joined team %s as %s\n", inv.TeamID, inv.Role)
				return nil
			},
		},
		&cobra.Command{
			Use:   "redeem <token>",
			Short: "Join a team with a shared invite link",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := r.requireSession(); err != nil {
					return err
				}
				inv, err := r.res().RedeemPublicInvite(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if r.demoNotice(cmd.OutOrStdout()) {
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Joined team %s (%s) as %s\n", inv.TeamID, inv.AppCode, inv.Role)
				return nil
			},
		},
	)
	return cmd
}
