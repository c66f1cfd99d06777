// Package config loads the tool configuration: target endpoint, prober
// selection, output preferences, analysis tunables, and per-scenario
// overrides.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pathprobehq/pathprobe/pkg/types"
)

const (
	envConfigPath     = "PATHPROBE_CONFIG"
	DefaultConfigPath = "/etc/pathprobe/config.yaml"
)

type Config struct {
	Target    TargetConfig            `yaml:"target"`
	Run       RunConfig               `yaml:"run"`
	Output    OutputConfig            `yaml:"output"`
	Analysis  AnalysisConfig          `yaml:"analysis"`
	Overrides map[string]TargetConfig `yaml:"overrides"`
}

type TargetConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Family    string `yaml:"family"`
	Interface string `yaml:"interface"`
}

type RunConfig struct {
	Prober         string        `yaml:"prober"`
	Privileged     bool          `yaml:"privileged"`
	CPUAffinity    *int          `yaml:"cpu_affinity"`
	RateCapPPS     int           `yaml:"rate_cap_pps"`
	TimeoutCeiling time.Duration `yaml:"timeout_ceiling"`
}

type OutputConfig struct {
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// AnalysisConfig carries the tunables the analyzer deliberately leaves to the
// caller: the burst run-length cutoff and the delta significance fraction.
type AnalysisConfig struct {
	BurstRunLength int     `yaml:"burst_run_length"`
	Significance   float64 `yaml:"significance"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Target: TargetConfig{
			Port:   7640,
			Family: string(types.FamilyIPv4),
		},
		Run: RunConfig{
			Prober:         "udp",
			TimeoutCeiling: time.Second,
		},
		Output: OutputConfig{
			Format: "text",
			Dir:    "./results",
		},
		Analysis: AnalysisConfig{
			BurstRunLength: 3,
			Significance:   0.10,
		},
	}
}

// Load reads and validates a configuration file, filling unset fields with
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by PATHPROBE_CONFIG, falling back to the
// default path. A missing file at the default path is not an error (defaults
// apply); a path set through the environment must load.
func LoadFromEnv() (Config, error) {
	path := os.Getenv(envConfigPath)
	if path == "" {
		path = DefaultConfigPath
		if _, err := os.Stat(path); err != nil {
			return Default(), nil
		}
	}
	return Load(path)
}

func (c Config) validate() error {
	switch c.Run.Prober {
	case "udp", "icmp":
	default:
		return fmt.Errorf("run.prober must be udp or icmp, got %q", c.Run.Prober)
	}
	switch c.Output.Format {
	case "json", "text":
	default:
		return fmt.Errorf("output.format must be json or text, got %q", c.Output.Format)
	}
	switch types.Family(c.Target.Family) {
	case "", types.FamilyIPv4, types.FamilyIPv6:
	default:
		return fmt.Errorf("target.family must be ipv4 or ipv6, got %q", c.Target.Family)
	}
	if c.Run.RateCapPPS < 0 {
		return fmt.Errorf("run.rate_cap_pps must be >= 0")
	}
	if c.Analysis.BurstRunLength < 2 {
		return fmt.Errorf("analysis.burst_run_length must be >= 2")
	}
	if c.Analysis.Significance <= 0 || c.Analysis.Significance >= 1 {
		return fmt.Errorf("analysis.significance must be within (0, 1)")
	}
	return nil
}

// TargetFor resolves the effective target for a scenario, applying any
// per-scenario override on top of the base target. Unset override fields
// keep the base value.
func (c Config) TargetFor(scenarioName string) TargetConfig {
	target := c.Target
	override, ok := c.Overrides[scenarioName]
	if !ok {
		return target
	}
	if override.Host != "" {
		target.Host = override.Host
	}
	if override.Port != 0 {
		target.Port = override.Port
	}
	if override.Family != "" {
		target.Family = override.Family
	}
	if override.Interface != "" {
		target.Interface = override.Interface
	}
	return target
}
