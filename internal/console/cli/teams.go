package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"suitehub/internal/console/resources"
	"suitehub/internal/engine/teams"
	"suitehub/internal/platform/models"
)

func (r *root) teamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "teams",
		Aliases: []string{"team"},
		Short:   "List, select and edit teams",
	}
	cmd.AddCommand(
		r.teamsListCmd(),
		r.teamsUseCmd(),
		r.teamsCreateCmd(),
		r.teamsEditCmd(),
		r.teamsPendingCmd(),
		r.teamsFlushCmd(),
		r.teamsDiscardCmd(),
		r.teamsVerifyCmd(),
	)
	return cmd
}

func (r *root) teamsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List owned teams and teams joined by invitation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			entries, err := r.res().MyTeams(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No teams yet. Create one with `suitehub teams create --name <name>`.")
				return nil
			}

			active := r.res().State().ActiveTeamID()
			tw := newTable(out)
			fmt.Fprintln(tw, "\tID\tNAME\tROLE\tPROVENANCE\tVERIFIED\tSTATUS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					marker(e.Team.ID == active), e.Team.ID, e.Team.Name, e.Role,
					e.Provenance, yesNo(e.Team.Verified), orDash(e.Team.Status))
			}
			return tw.Flush()
		},
	}
}

func (r *root) teamsUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <team-id>",
		Short: "Select the active team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			team, err := r.res().SelectTeam(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active team: %s (%s)\n", team.Name, team.ID)
			return nil
		},
	}
}

func (r *root) teamsCreateCmd() *cobra.Command {
	var in resources.CreateTeamInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a team owned by you",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			if strings.TrimSpace(in.Name) == "" {
				return errors.New("--name is required")
			}
			team, err := r.res().CreateTeam(cmd.Context(), in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.demoNotice(out) {
				return nil
			}
			fmt.Fprintf(out, "Created team %s (%s)\n", team.Name, team.ID)
			if !team.Verified {
				fmt.Fprintln(out, "The team must be verified before it can subscribe to apps.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "team name")
	cmd.Flags().StringVar(&in.Logo, "logo", "", "logo URL")
	cmd.Flags().StringVar(&in.BillingEmail, "billing-email", "", "billing contact email")
	cmd.Flags().StringVar(&in.TaxID, "tax-id", "", "tax identifier")
	return cmd
}

type teamEditFlags struct {
	name, logo, billingEmail, taxID             string
	street, city, province, postalCode, country string
}

func (f *teamEditFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "team name")
	fs.StringVar(&f.logo, "logo", "", "logo URL")
	fs.StringVar(&f.billingEmail, "billing-email", "", "billing contact email")
	fs.StringVar(&f.taxID, "tax-id", "", "tax identifier")
	fs.StringVar(&f.street, "street", "", "address street")
	fs.StringVar(&f.city, "city", "", "address city")
	fs.StringVar(&f.province, "province", "", "address province")
	fs.StringVar(&f.postalCode, "postal-code", "", "address postal code")
	fs.StringVar(&f.country, "country", "", "address country")
}

// patch includes only flags set on the command line, so an explicit empty
// value clears the field.
func (f *teamEditFlags) patch(fs *pflag.FlagSet, current *models.Team) models.TeamPatch {
	var p models.TeamPatch
	str := func(name, v string) *string {
		if !fs.Changed(name) {
			return nil
		}
		s := v
		return &s
	}
	p.Name = str("name", f.name)
	p.Logo = str("logo", f.logo)
	p.BillingEmail = str("billing-email", f.billingEmail)
	p.TaxID = str("tax-id", f.taxID)

	addressFlags := []string{"street", "city", "province", "postal-code", "country"}
	touched := false
	for _, name := range addressFlags {
		if fs.Changed(name) {
			touched = true
		}
	}
	if touched {
		addr := models.Address{}
		if current != nil && current.Address != nil {
			addr = *current.Address
		}
		if fs.Changed("street") {
			addr.Street = f.street
		}
		if fs.Changed("city") {
			addr.City = f.city
		}
		if fs.Changed("province") {
			addr.Province = f.province
		}
		if fs.Changed("postal-code") {
			addr.PostalCode = f.postalCode
		}
		if fs.Changed("country") {
			addr.Country = f.country
		}
		p.Address = &addr
	}
	return p
}

func (r *root) teamsEditCmd() *cobra.Command {
	var (
		flags teamEditFlags
		stage bool
	)

	cmd := &cobra.Command{
		Use:   "edit [team-id]",
		Short: "Update team profile or billing details",
		Long: `Update the active team, or the team given as argument. Only the flags
you pass are changed. With --stage the edit is kept locally and sent later
with ` + "`suitehub teams flush`" + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()

			team, err := r.teamArg(cmd, args)
			if err != nil {
				return err
			}

			patch := flags.patch(cmd.Flags(), team)
			if patch.Empty() {
				return errors.New("nothing to change; pass at least one field flag")
			}

			out := cmd.OutOrStdout()
			if stage {
				if err := r.res().StageTeamEdit(ctx, team.ID, patch); err != nil {
					return err
				}
				fmt.Fprintf(out, "Staged edit for %s\n", team.ID)
				return nil
			}

			updated, err := r.res().UpdateTeam(ctx, team.ID, patch)
			if err != nil {
				return err
			}
			if r.demoNotice(out) {
				return nil
			}
			fmt.Fprintf(out, "Updated team %s (%s)\n", updated.Name, updated.ID)
			return nil
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&stage, "stage", false, "keep the edit locally instead of sending it")
	return cmd
}

// teamArg resolves the optional team argument without changing the
// selection, falling back to the active team.
func (r *root) teamArg(cmd *cobra.Command, args []string) (*models.Team, error) {
	if len(args) == 0 {
		return r.res().ActiveTeam(cmd.Context())
	}
	entries, err := r.res().MyTeams(cmd.Context())
	if err != nil {
		return nil, err
	}
	return teams.ResolveActiveTeam(teams.Teams(entries), args[0])
}

func (r *root) teamsPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List staged team edits",
		RunE: func(cmd *cobra.Command, args []string) error {
			edits := r.res().State().PendingEdits()
			out := cmd.OutOrStdout()
			if len(edits) == 0 {
				fmt.Fprintln(out, "No pending edits.")
				return nil
			}
			tw := newTable(out)
			fmt.Fprintln(tw, "TEAM\tFIELDS\tBASE")
			for _, e := range edits {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.TeamID, strings.Join(patchFields(e.Patch), ","), formatTime(e.BaseUpdatedAt))
			}
			return tw.Flush()
		},
	}
}

func patchFields(p models.TeamPatch) []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Logo != nil {
		fields = append(fields, "logo")
	}
	if p.BillingEmail != nil {
		fields = append(fields, "billing_email")
	}
	if p.TaxID != nil {
		fields = append(fields, "tax_id")
	}
	if p.Address != nil {
		fields = append(fields, "address")
	}
	return fields
}

func (r *root) teamsFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Send staged team edits",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			res, err := r.res().FlushTeamEdits(cmd.Context())
			out := cmd.OutOrStdout()
			for _, id := range res.Sent {
				fmt.Fprintf(out, "sent      %s\n", id)
			}
			for _, id := range res.Stale {
				fmt.Fprintf(out, "discarded %s (changed on the server)\n", id)
			}
			for _, id := range res.Kept {
				fmt.Fprintf(out, "kept      %s (team not listed)\n", id)
			}
			return err
		},
	}
}

func (r *root) teamsDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <team-id>",
		Short: "Drop a staged team edit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.res().State().DiscardEdit(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Discarded edit for %s\n", args[0])
			return nil
		},
	}
}

func (r *root) teamsVerifyCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "verify <team-id>",
		Short: "Verify a team (platform operators only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			team, err := r.res().VerifyTeam(cmd.Context(), args[0], !revoke)
			if err != nil {
				return err
			}
			if r.demoNotice(cmd.OutOrStdout()) {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Team %s verified: %s\n", team.ID, yesNo(team.Verified))
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove verification")
	return cmd
}
