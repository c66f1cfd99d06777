package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathprobehq/pathprobe/internal/analyze"
	"github.com/pathprobehq/pathprobe/internal/output"
	"github.com/pathprobehq/pathprobe/pkg/types"
)

var (
	compareMetricFlag    string
	compareThresholdFlag float64
	compareRoleFlag      string
)

var compareCmd = &cobra.Command{
	Use:   "compare <a.json> <b.json>",
	Short: "Compare a summary statistic between two persisted results",
	Long: `Compares one summary statistic between two scenario result files, for
primary-vs-secondary feed, EF-vs-CS0 and IPv4-vs-IPv6 validation. The delta
is signed B minus A and flagged when it reaches the significance threshold.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		threshold := cfg.Analysis.Significance
		if cmd.Flags().Changed("threshold") {
			threshold = compareThresholdFlag
		}

		a, err := output.ReadJSON(args[0])
		if err != nil {
			return err
		}
		b, err := output.ReadJSON(args[1])
		if err != nil {
			return err
		}

		resA, err := pickSession(a, compareRoleFlag)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		resB, err := pickSession(b, compareRoleFlag)
		if err != nil {
			return fmt.Errorf("%s: %w", args[1], err)
		}

		c, err := analyze.Delta(resA, resB, analyze.Metric(compareMetricFlag), threshold)
		if err != nil {
			return err
		}
		output.RenderComparison(cmd.OutOrStdout(), c)
		return nil
	},
}

func pickSession(res *types.ScenarioResult, role string) (*types.Result, error) {
	if len(res.Sessions) == 0 {
		return nil, fmt.Errorf("scenario result has no sessions")
	}
	if role == "" {
		return res.Sessions[0].Result, nil
	}
	if sess := res.Session(role); sess != nil {
		return sess.Result, nil
	}
	return nil, fmt.Errorf("no session with role %q", role)
}

func init() {
	compareCmd.Flags().StringVar(&compareMetricFlag, "metric", string(analyze.MetricP99), "statistic to compare: min, mean, p99 or max")
	compareCmd.Flags().Float64Var(&compareThresholdFlag, "threshold", 0.10, "significance fraction (0.10 flags deltas of 10% or more)")
	compareCmd.Flags().StringVar(&compareRoleFlag, "role", "", "session role to compare (default: first session)")
	rootCmd.AddCommand(compareCmd)
}
