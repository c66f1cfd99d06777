package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathprobehq/pathprobe/internal/analyze"
	"github.com/pathprobehq/pathprobe/internal/output"
)

var analyzeBurstFlag int

var analyzeCmd = &cobra.Command{
	Use:   "analyze <result.json>",
	Short: "Classify loss patterns and print per-hop profiles for a persisted result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		burstRun := cfg.Analysis.BurstRunLength
		if cmd.Flags().Changed("burst-run") {
			burstRun = analyzeBurstFlag
		}

		res, err := output.ReadJSON(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		sweep := false
		for _, sess := range res.Sessions {
			if sess.Hop > 0 {
				sweep = true
			}
			class, err := analyze.ClassifyLoss(sess.Result, burstRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-16s loss=%.2f%% classification=%s\n",
				sess.Role, sess.Result.Summary.LossPercent, class)
		}

		if sweep {
			hops, err := analyze.PerHop(res.Sessions)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "per-hop profile:")
			output.RenderPerHop(out, hops)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeBurstFlag, "burst-run", 3, "lost-run length that counts as burst loss")
	rootCmd.AddCommand(analyzeCmd)
}
