package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"handwerk/internal/infrastructure/pricelist"
)

func newArticlesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "Article catalog price lists",
	}

	var out string
	export := &cobra.Command{
		Use:     "export",
		Short:   "Write the catalog to an .xlsx price list",
		Example: "  handwerkctl articles export -o artikel.xlsx",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			n, err := pricelist.Export(e.ctx, e.app.Articles, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d articles to %s\n", n, out)
			return nil
		},
	}
	export.Flags().StringVarP(&out, "output", "o", "artikel.xlsx", "output file")

	var dryRun bool
	imp := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Create and update articles from a price list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := pricelist.Parse(f)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d rows are valid\n", len(rows))
				return nil
			}

			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := pricelist.Apply(e.ctx, e.app.Articles, rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d, unchanged %d\n",
				res.Created, res.Updated, res.Skipped)
			return nil
		},
	}
	imp.Flags().BoolVar(&dryRun, "dry-run", false, "only validate the file")

	cmd.AddCommand(export, imp)
	return cmd
}
