package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dlubawy/nix-darwin/internal/config"
	"github.com/dlubawy/nix-darwin/internal/logging"
)

var (
	configPaths []string
	logLevel    string
	logPretty   bool

	env *config.Env
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "darwin-users",
	Short: "Reconcile declared users and groups against the local directory",
	Long: `darwin-users applies a declarative snapshot of users and groups to the
local machine. It validates the declared configuration, allocates
missing UIDs/GIDs, diffs against the accounts it manages (marked in the
directory itself) and issues the minimal create/update/delete sequence,
never touching accounts it does not own.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		env, err = config.LoadEnv(context.Background())
		if err != nil {
			return fmt.Errorf("environment: %w", err)
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = env.LogLevel
		}
		if !cmd.Flags().Changed("pretty") {
			logPretty = env.LogPretty
		}
		log = logging.New(logging.Options{Level: logLevel, Pretty: logPretty, Output: os.Stderr})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configPaths, "config", "c", nil,
		"configuration fragment file (repeatable, merged by priority)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", true, "human-friendly log output")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPaths)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
