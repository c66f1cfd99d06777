package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathprobehq/pathprobe/internal/catalog"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, sc := range catalog.Builtin() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-12s %s\n", sc.Name, sc.Pattern, sc.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
