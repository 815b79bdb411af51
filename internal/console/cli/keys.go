package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"suitehub/internal/platform/models"
)

func (r *root) keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keys",
		Aliases: []string{"api-keys"},
		Short:   "Manage API keys of the active app subscription",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List API keys",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := r.requireSession(); err != nil {
					return err
				}
				keys, err := r.res().ActiveAPIKeys(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(keys) == 0 {
					fmt.Fprintln(out, "No API keys.")
					return nil
				}
				tw := newTable(out)
				fmt.Fprintln(tw, "ID\tNAME\tPREFIX\tSTATUS\tCREATED\tLAST USED")
				for _, k := range keys {
					lastUsed := "-"
					if k.LastUsedAt != nil {
						lastUsed = formatTime(*k.LastUsedAt)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", k.ID, k.Name, k.KeyPrefix, k.Status, formatDate(k.CreatedAt), lastUsed)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Issue a new API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := r.requireSession(); err != nil {
					return err
				}
				issued, err := r.res().CreateAPIKey(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return r.printIssued(cmd.OutOrStdout(), issued)
			},
		},
		&cobra.Command{
			Use:   "regenerate <key-id>",
			Short: "Replace a key's secret",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := r.requireSession(); err != nil {
					return err
				}
				issued, err := r.res().RegenerateAPIKey(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return r.printIssued(cmd.OutOrStdout(), issued)
			},
		},
		&cobra.Command{
			Use:     "delete <key-id>",
			Aliases: []string{"rm"},
			Short:   "Revoke an API key",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := r.requireSession(); err != nil {
					return err
				}
				if err := r.res().DeleteAPIKey(cmd.Context(), args[0]); err != nil {
					return err
				}
				if r.demoNotice(cmd.OutOrStdout()) {
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func (r *root) printIssued(w io.Writer, issued *models.IssuedAPIKey) error {
	if r.demoNotice(w) {
		return nil
	}
	fmt.Fprintf(w, "Key %s (%s)\n", issued.Name, issued.ID)
	fmt.Fprintf(w, "Secret: %s\n", issued.Key)
	fmt.Fprintln(w, "Store the secret now; it is not shown again.")
	return nil
}
