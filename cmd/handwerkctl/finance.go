package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"handwerk/internal/core/types"
)

func newFinanceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finance",
		Short: "Bookkeeping reports",
	}

	var from, to string
	report := &cobra.Command{
		Use:     "vat-report",
		Short:   "VAT pre-registration figures for a period",
		Example: "  handwerkctl finance vat-report --from 2026-01-01 --to 2026-03-31",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := time.Parse(time.DateOnly, from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := time.Parse(time.DateOnly, to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			r, err := e.app.Finance.VATReport(e.ctx, start, end)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(w, "type\trate\tcount\tgross\tnet\tVAT\t\n")
			for _, l := range r.Lines {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t\n", l.Type, l.Rate, l.Count,
					types.FormatEUR(l.Gross), types.FormatEUR(l.Net), types.FormatEUR(l.VAT))
			}
			fmt.Fprintf(w, "output VAT\t\t\t\t\t%s\t\n", types.FormatEUR(r.OutputVAT))
			fmt.Fprintf(w, "input VAT\t\t\t\t\t%s\t\n", types.FormatEUR(r.InputVAT))
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "payable: %s\n", types.FormatEUR(r.Payable))
			return nil
		},
	}
	report.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD)")
	report.Flags().StringVar(&to, "to", "", "last day (YYYY-MM-DD)")
	_ = report.MarkFlagRequired("from")
	_ = report.MarkFlagRequired("to")

	cmd.AddCommand(report)
	return cmd
}
