package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"suitehub/internal/engine/access"
)

func (r *root) canCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "can [permission]",
		Short: "Check what your role allows in the active team",
		Long: `Report whether your role in the active team grants a permission, exiting
non-zero when it does not. With --list every granted permission is shown.

Permissions: ` + permissionNames() + `

Examples:
  suitehub can pay:invoices
  suitehub can --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.requireSession(); err != nil {
				return err
			}
			if !list && len(args) == 0 {
				return fmt.Errorf("permission required; one of %s", permissionNames())
			}

			e, team, err := r.res().Permission(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				fmt.Fprintf(out, "Role %s in %s (verified: %s)\n", orDash(e.Role), team.ID, yesNo(team.Verified))
				for _, p := range e.Granted() {
					fmt.Fprintf(out, "  %s\n", p)
				}
				return nil
			}

			p, ok := access.ParsePermission(args[0])
			if !ok {
				return fmt.Errorf("unknown permission %q; one of %s", args[0], permissionNames())
			}
			allowed := e.Can(p)
			fmt.Fprintf(out, "%s: %s (role %s)\n", p, yesNo(allowed), orDash(e.Role))
			if allowed {
				return nil
			}
			if p == access.SubscribeApps && !team.Verified {
				return access.ErrTeamNotVerified
			}
			return access.ErrNoPermission
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list every granted permission")
	return cmd
}

func permissionNames() string {
	names := make([]string, 0, len(access.All))
	for _, p := range access.All {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
