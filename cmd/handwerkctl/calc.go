package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"handwerk/internal/core/types"
	"handwerk/internal/domain/pricing"
)

func newCalcCmd() *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "VAT and margin calculator",
	}
	cmd.PersistentFlags().StringVarP(&rate, "rate", "r", "19", "tax rate: 0, 7 or 19")

	net := &cobra.Command{
		Use:     "net <gross>",
		Short:   "Split a gross amount into net and tax",
		Example: "  handwerkctl calc net 119\n  handwerkctl calc net 10,70 --rate 7",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gross, r, err := parseAmountRate(args[0], rate)
			if err != nil {
				return err
			}
			split, err := pricing.SplitGross(gross, r)
			if err != nil {
				return err
			}
			printSplit(cmd, split, r)
			return nil
		},
	}

	gross := &cobra.Command{
		Use:   "gross <net>",
		Short: "Add tax to a net amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			netAmount, r, err := parseAmountRate(args[0], rate)
			if err != nil {
				return err
			}
			g, err := pricing.GrossFromNet(netAmount, r)
			if err != nil {
				return err
			}
			split, err := pricing.SplitGross(g, r)
			if err != nil {
				return err
			}
			printSplit(cmd, split, r)
			return nil
		},
	}

	var good, bad float64
	margin := &cobra.Command{
		Use:   "margin <gross sales> <gross purchase>",
		Short: "Gross margin (BHR) and its calculation state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sales, err := types.ParseAmount(args[0])
			if err != nil {
				return err
			}
			purchase, err := types.ParseAmount(args[1])
			if err != nil {
				return err
			}
			res, err := pricing.Margin(sales, purchase)
			if err != nil {
				return err
			}
			t := pricing.DefaultThresholds()
			if cmd.Flags().Changed("good") {
				t.Good = decimal.NewFromFloat(good)
			}
			if cmd.Flags().Changed("bad") {
				t.Bad = decimal.NewFromFloat(bad)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "BHR:    %s\nBHR %%:  %s\nstate:  %s\n",
				types.FormatEUR(res.Amount), res.Percent.StringFixed(2), t.Classify(res.Percent))
			return nil
		},
	}
	margin.Flags().Float64Var(&good, "good", 30, "percent above which a margin is good")
	margin.Flags().Float64Var(&bad, "bad", 10, "percent below which a margin is bad")

	cmd.AddCommand(net, gross, margin)
	return cmd
}

func parseAmountRate(amount, rate string) (types.Money, pricing.TaxRate, error) {
	a, err := types.ParseAmount(amount)
	if err != nil {
		return a, 0, err
	}
	r, err := pricing.ParseTaxRate(rate)
	return a, r, err
}

func printSplit(cmd *cobra.Command, s pricing.Split, r pricing.TaxRate) {
	fmt.Fprintf(cmd.OutOrStdout(), "net:     %s\nVAT %s: %s\ngross:   %s\n",
		types.FormatEUR(s.Net), r, types.FormatEUR(s.Tax), types.FormatEUR(s.Gross))
}
