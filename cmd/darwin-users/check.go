package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dlubawy/nix-darwin/internal/check"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the declared configuration without touching the system",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		violations := check.Run(cfg)
		for _, v := range violations {
			fmt.Fprintln(cmd.OutOrStdout(), v.String())
		}
		if check.AnyFatal(violations) {
			return fmt.Errorf("%d finding(s), configuration rejected", len(violations))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
