package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newInvoicesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Invoice maintenance",
	}

	var asOf string
	sweep := &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark unpaid invoices past their due date as overdue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if asOf != "" {
				t, err := time.Parse(time.DateOnly, asOf)
				if err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
				now = t
			}

			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.app.Invoices.SweepOverdue(e.ctx, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d invoices marked overdue\n", n)
			return nil
		},
	}
	sweep.Flags().StringVar(&asOf, "as-of", "", "reference date (YYYY-MM-DD), default today")

	cmd.AddCommand(sweep)
	return cmd
}
