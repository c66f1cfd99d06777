package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathprobehq/pathprobe/internal/affinity"
	"github.com/pathprobehq/pathprobe/internal/catalog"
	"github.com/pathprobehq/pathprobe/internal/events"
	"github.com/pathprobehq/pathprobe/internal/logging"
	"github.com/pathprobehq/pathprobe/internal/output"
	"github.com/pathprobehq/pathprobe/internal/prober"
	runctx "github.com/pathprobehq/pathprobe/internal/run"
	"github.com/pathprobehq/pathprobe/internal/scenario"
	"github.com/pathprobehq/pathprobe/internal/session"
	"github.com/pathprobehq/pathprobe/pkg/types"
)

var (
	runTargetFlag   string
	runPortFlag     int
	runFamilyFlag   string
	runFormatFlag   string
	runDirFlag      string
	runDeadlineFlag time.Duration
	runConfirmFlag  bool
)

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Run a named scenario against the configured target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		sc, err := catalog.Lookup(args[0])
		if err != nil {
			return err
		}

		tc := cfg.TargetFor(sc.Name)
		if runTargetFlag != "" {
			tc.Host = runTargetFlag
		}
		if runPortFlag != 0 {
			tc.Port = runPortFlag
		}
		if runFamilyFlag != "" {
			tc.Family = runFamilyFlag
		}
		if tc.Host == "" {
			return fmt.Errorf("target host required (set --target or configure target.host)")
		}
		if runFormatFlag != "" {
			cfg.Output.Format = runFormatFlag
		}
		if runDirFlag != "" {
			cfg.Output.Dir = runDirFlag
		}

		target := prober.Target{
			Host:      tc.Host,
			Port:      tc.Port,
			Family:    types.Family(tc.Family),
			Interface: tc.Interface,
		}

		logger := logging.New()
		if cfg.Run.CPUAffinity != nil {
			if err := affinity.Pin(*cfg.Run.CPUAffinity); err != nil {
				logger.Printf("cpu affinity hint ignored: %v", err)
			}
		}

		var dialer prober.Dialer
		switch cfg.Run.Prober {
		case "icmp":
			dialer = prober.NewICMPDialer(prober.WithPrivileged(cfg.Run.Privileged))
		default:
			dialer = prober.NewUDPDialer()
		}

		runnerOpts := []session.Option{
			session.WithLogger(logger),
			session.WithTimeoutCeiling(cfg.Run.TimeoutCeiling),
		}
		if cfg.Run.RateCapPPS > 0 {
			runnerOpts = append(runnerOpts, session.WithRateCap(cfg.Run.RateCapPPS))
		}
		runner := session.New(dialer, runnerOpts...)

		rc, err := runctx.New(cfg.Output.Dir, cfg.Output.Format)
		if err != nil {
			return err
		}

		eventFile, err := os.Create(rc.ResultPath("events", "jsonl"))
		if err != nil {
			return fmt.Errorf("create event trace: %w", err)
		}
		defer eventFile.Close()
		recorder := events.NewMulti(
			events.LogRecorder{Logger: logger},
			events.NewStreamRecorder(eventFile),
		)

		engineOpts := []scenario.Option{
			scenario.WithRecorder(recorder),
			scenario.WithRunID(func() string { return rc.ID }),
		}
		if runConfirmFlag && sc.Pattern == scenario.PatternConcurrent {
			ready := make(chan struct{})
			go func() {
				fmt.Fprintln(cmd.OutOrStdout(), "press ENTER when the background stream has settled")
				bufio.NewReader(os.Stdin).ReadString('\n')
				close(ready)
			}()
			engineOpts = append(engineOpts, scenario.WithReadySignal(ready))
		}
		eng := scenario.New(runner, engineOpts...)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if runDeadlineFlag > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runDeadlineFlag)
			defer cancel()
		}

		logger.Printf("run %s: scenario %s against %s", rc.ID, sc.Name, target)
		res, runErr := eng.Execute(ctx, sc, target)
		if res != nil {
			output.RenderText(cmd.OutOrStdout(), res)
			if cfg.Output.Format == "json" {
				path := rc.ResultPath(sc.Name, "json")
				if err := output.WriteJSON(path, res); err != nil {
					logger.Printf("persist result: %v", err)
				} else {
					logger.Printf("result written to %s", path)
				}
			}
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().StringVar(&runTargetFlag, "target", "", "target host (overrides config)")
	runCmd.Flags().IntVar(&runPortFlag, "port", 0, "target port (overrides config)")
	runCmd.Flags().StringVar(&runFamilyFlag, "family", "", "address family: ipv4 or ipv6 (overrides config)")
	runCmd.Flags().StringVar(&runFormatFlag, "format", "", "output format: json or text (overrides config)")
	runCmd.Flags().StringVar(&runDirFlag, "output-dir", "", "results directory (overrides config)")
	runCmd.Flags().DurationVar(&runDeadlineFlag, "deadline", 0, "overall deadline for the scenario run")
	runCmd.Flags().BoolVar(&runConfirmFlag, "confirm-settle", false, "wait for operator confirmation instead of the fixed settle delay (concurrent scenarios)")
	rootCmd.AddCommand(runCmd)
}
