// Package main is the handwerk command-line tool: schema migrations,
// the tax calculator, price lists and maintenance jobs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"handwerk/internal/app"
	"handwerk/internal/config"
	appctx "handwerk/internal/core/context"
	"handwerk/pkg/logger"
)

var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "handwerkctl",
		Short: "Command-line tool for the handwerk back office",
		Long: `handwerkctl runs schema migrations, the VAT and margin calculator,
price list import and export and maintenance jobs against the
database configured in config.yaml or HANDWERK_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newCalcCmd(),
		newArticlesCmd(opts),
		newInvoicesCmd(opts),
		newFinanceCmd(opts),
	)
	return cmd
}

// env is what commands that touch data need.
type env struct {
	cfg *config.Config
	log *logger.Logger
	app *app.App
	ctx context.Context
}

func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, _, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Config{Level: o.logLevel, Development: true})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// open builds the application. The caller must call Close on the result.
func (o *rootOptions) open(cmd *cobra.Command) (*env, error) {
	cfg, log, err := o.load(cmd)
	if err != nil {
		return nil, err
	}
	ctx := logger.WithLogger(cmd.Context(), log)
	ctx = appctx.WithActor(ctx, appctx.Actor{Name: currentUser(), Source: "cli"})

	a, err := app.New(ctx, cfg, log, app.Options{SkipMigrations: true})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, app: a, ctx: ctx}, nil
}

// Close releases connections.
func (e *env) Close() {
	e.app.Close()
	_ = e.log.Sync()
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "handwerkctl"
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
