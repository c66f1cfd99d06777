package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathprobehq/pathprobe/internal/preflight"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the environment before a measurement run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		checker := preflight.New()
		failed := 0
		for _, check := range checker.Run(cmd.Context(), cfg) {
			status := "PASS"
			if !check.OK {
				status = "FAIL"
				failed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-18s %s\n", status, check.Name, check.Detail)
		}
		if failed > 0 {
			return fmt.Errorf("%d preflight check(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
