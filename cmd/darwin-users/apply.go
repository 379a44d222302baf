package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dlubawy/nix-darwin/internal/activate"
	"github.com/dlubawy/nix-darwin/internal/config"
	"github.com/dlubawy/nix-darwin/internal/dscl"
)

var (
	dryRun             bool
	adminUser          string
	forceEmptyObserved bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Execute one reconciliation pass",
	Long: `apply runs a full pass: validate, allocate ids, diff against the
managed set and execute the resulting operations. Fatal validation
findings abort before any mutation; execution errors halt the pass at
the failing account. Re-running apply is the recovery mechanism.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"record and print the command sequence instead of executing it")
	applyCmd.Flags().StringVar(&adminUser, "admin-user", "",
		"token-holder admin authorising delegated operations (default from environment)")
	applyCmd.Flags().BoolVar(&forceEmptyObserved, "force-empty-observed", false,
		"treat a failed managed-state listing as an empty managed set instead of aborting")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if !cmd.Flags().Changed("dry-run") {
		dryRun = env.DryRun
	}
	if adminUser == "" {
		adminUser = env.AdminUser
	}

	adminPassword := env.AdminPassword
	if adminPassword == "" && !dryRun && needsDelegation(cfg) {
		adminPassword, err = promptPassword(adminUser)
		if err != nil {
			return err
		}
	}

	var runner dscl.Runner
	recorder := &dscl.RecordingRunner{}
	if dryRun {
		runner = recorder
	} else {
		runner = dscl.NewRunner(env.CommandTimeout)
	}
	dir := dscl.NewDirectory(runner, cfg.Settings.AdminGroup, log)

	opts := activate.Options{
		AdminPassword:      adminPassword,
		ProfilesRoot:       env.ProfilesRoot,
		SkipProfiles:       dryRun,
		ForceEmptyObserved: forceEmptyObserved,
	}
	res, err := activate.Pass(ctx, cfg, dir, opts, log)
	if res != nil {
		for _, w := range res.Warnings {
			log.Warn().Msg(w)
		}
	}
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "commands that would run:")
		for _, line := range recorder.Strings() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", line)
		}
		return nil
	}
	log.Info().
		Int("users", len(res.Users)).
		Int("groups", len(res.Groups)).
		Msg("reconciliation complete")
	return nil
}

// needsDelegation reports whether the pass may perform operations that
// require token-holder admin credentials.
func needsDelegation(cfg *config.Config) bool {
	if cfg.Settings.MutableUsers {
		return false
	}
	for _, u := range cfg.Users {
		if u.IsTokenUser || u.Password != "" {
			return true
		}
	}
	return false
}

func promptPassword(admin string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("admin password required: set DARWIN_USERS_ADMIN_PASSWORD or run on a terminal")
	}
	if admin == "" {
		admin = "admin"
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", admin)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
