// Package cli is the thin command surface over the scenario engine.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/pathprobehq/pathprobe/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pathprobe",
	Short: "Path latency qualification tool",
	Long: `pathprobe characterizes round-trip latency, jitter, loss and QoS
differentiation along a path between this sender and a remote responder,
driven by a catalog of named scenarios.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file (default "+config.DefaultConfigPath+")")
}

// loadConfig resolves the effective configuration: an explicit --config path
// must load; otherwise the environment decides.
func loadConfig() (config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadFromEnv()
}
