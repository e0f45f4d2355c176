package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"handwerk/internal/infrastructure/migration"
	"handwerk/internal/infrastructure/storage/postgres"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, opts, func(db *sql.DB) error {
				if err := migration.Up(db); err != nil {
					return err
				}
				return printVersion(cmd, db)
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, opts, func(db *sql.DB) error {
				if err := migration.Down(db, steps); err != nil {
					return err
				}
				return printVersion(cmd, db)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back, 0 for all")

	ver := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, opts, func(db *sql.DB) error {
				return printVersion(cmd, db)
			})
		},
	}

	cmd.AddCommand(up, down, ver)
	return cmd
}

func withDB(cmd *cobra.Command, opts *rootOptions, fn func(db *sql.DB) error) error {
	cfg, _, err := opts.load(cmd)
	if err != nil {
		return err
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is not configured")
	}
	pool, err := postgres.NewPool(cmd.Context(), postgres.DefaultPoolConfig(cfg.Postgres.DSN))
	if err != nil {
		return err
	}
	defer pool.Close()

	db := migration.OpenDB(pool.Pool)
	defer db.Close()
	return fn(db)
}

func printVersion(cmd *cobra.Command, db *sql.DB) error {
	v, dirty, err := migration.Version(db)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty)\n", v)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
	return nil
}
