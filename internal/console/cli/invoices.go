package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"suitehub/internal/engine/access"
)

func (r *root) invoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoices",
		Aliases: []string{"invoice"},
		Short:   "Invoices of the active team",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List invoices",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := r.requireSession(); err != nil {
					return err
				}
				ctx := cmd.Context()
				e, team, err := r.res().Permission(ctx)
				if err != nil {
					return err
				}
				if !e.Can(access.ViewInvoices) {
					return access.ErrNoPermission
				}
				invoices, err := r.res().Invoices(ctx, team.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(invoices) == 0 {
					fmt.Fprintln(out, "No invoices.")
					return nil
				}
				tw := newTable(out)
				fmt.Fprintln(tw, "ID\tNUMBER\tSTATUS\tAMOUNT\tTAX\tTOTAL\tDUE\tPAID")
				for _, inv := range invoices {
					paid := "-"
					if inv.PaidAt != nil {
						paid = formatDate(*inv.PaidAt)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						inv.ID, inv.InvoiceNumber, inv.Status,
						inv.Amount.StringFixed(2), inv.Tax.StringFixed(2), inv.TotalAmount.StringFixed(2),
						formatDate(inv.DueDate), paid)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "pay <invoice-id>",
			Short: "Pay an invoice",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := r.requireSession(); err != nil {
					return err
				}
				inv, err := r.res().PayInvoice(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if r.demoNotice(cmd.OutOrStdout()) {
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Paid %s (%s)\n", inv.InvoiceNumber, inv.TotalAmount.StringFixed(2))
				return nil
			},
		},
	)
	return cmd
}
