package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dlubawy/nix-darwin/internal/activate"
	"github.com/dlubawy/nix-darwin/internal/dscl"
	"github.com/dlubawy/nix-darwin/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the operations a pass would perform",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		runner := dscl.NewRunner(env.CommandTimeout)
		dir := dscl.NewDirectory(runner, cfg.Settings.AdminGroup, log)

		p, err := activate.Preview(cmd.Context(), cfg, dir, activate.Options{ForceEmptyObserved: forceEmptyObserved})
		if err != nil {
			return err
		}
		printDelta(cmd, "users", p.Users)
		printDelta(cmd, "groups", p.Groups)
		if p.Users.Empty() && p.Groups.Empty() {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing to do")
		}
		return nil
	},
}

func printDelta(cmd *cobra.Command, kind string, d plan.Delta) {
	for _, n := range d.Delete {
		fmt.Fprintf(cmd.OutOrStdout(), "- %s %s\n", kind[:len(kind)-1], n)
	}
	for _, n := range d.Create {
		fmt.Fprintf(cmd.OutOrStdout(), "+ %s %s\n", kind[:len(kind)-1], n)
	}
	for _, n := range d.Update {
		fmt.Fprintf(cmd.OutOrStdout(), "~ %s %s\n", kind[:len(kind)-1], n)
	}
}

func init() {
	planCmd.Flags().BoolVar(&forceEmptyObserved, "force-empty-observed", false,
		"treat a failed managed-state listing as an empty managed set instead of aborting")
	rootCmd.AddCommand(planCmd)
}
