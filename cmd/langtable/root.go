package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/langtable/config"
)

// NewRootCmd creates the root command for langtable.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "langtable",
		Short: "Collect multilingual item names from a wiki",
		Long: `langtable loads an index page, follows its detail links and extracts
each item's English, Japanese and Vietnamese names from the page's
translation table. Results are written as a JSON array and optionally
to SQLite.

Configuration is read from .env, an optional YAML file (--config or
LANGTABLE_CONFIG) and LANGTABLE_* environment variables, in that order of
increasing precedence. Command-line flags override all of them.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds the configuration shared by every subcommand: .env,
// then the config file, then the environment, then --verbose.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv("LANGTABLE_CONFIG")
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}
