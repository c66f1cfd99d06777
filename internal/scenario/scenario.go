// Package scenario models named measurement scenarios and the engine that
// resolves them into session runs.
package scenario

import (
	"fmt"
	"time"

	"github.com/pathprobehq/pathprobe/pkg/types"
)

// Pattern is the structural shape of a scenario.
type Pattern string

const (
	// PatternSequential runs probe phases in order, with optional silence
	// gaps between them.
	PatternSequential Pattern = "sequential"
	// PatternConcurrent runs a long background stream and, after a settle
	// point, a short foreground stream against the same target.
	PatternConcurrent Pattern = "concurrent"
	// PatternSweep repeats one profile shape across an ordered list of
	// hop-limit values.
	PatternSweep Pattern = "sweep"
)

// Phase is one step of a sequential scenario: a probe phase when Profile is
// set, or a silence gap when Silence is positive.
type Phase struct {
	Role    string        `yaml:"role"`
	Profile types.Profile `yaml:"profile,omitempty"`
	Silence time.Duration `yaml:"silence,omitempty"`
}

func (p Phase) IsSilence() bool { return p.Silence > 0 }

// Stream names one of the two concurrent sessions.
type Stream struct {
	Role    string        `yaml:"role"`
	Profile types.Profile `yaml:"profile"`
}

// Sweep varies the hop limit of one profile across an ordered value list.
type Sweep struct {
	Profile types.Profile `yaml:"profile"`
	Hops    []int         `yaml:"hops"`
}

// Scenario is an immutable, named composition of profiles. Exactly one of the
// pattern-specific sections is populated, matching Pattern.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Pattern     Pattern       `yaml:"pattern"`
	Phases      []Phase       `yaml:"phases,omitempty"`
	Background  Stream        `yaml:"background,omitempty"`
	Foreground  Stream        `yaml:"foreground,omitempty"`
	Settle      time.Duration `yaml:"settle,omitempty"`
	Sweep       Sweep         `yaml:"sweep,omitempty"`
}

// Validate checks the scenario's structure before anything runs.
// A failure here is a configuration error: the scenario must not start.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name must not be empty")
	}
	switch s.Pattern {
	case PatternSequential:
		if len(s.Phases) == 0 {
			return fmt.Errorf("scenario %s: sequential pattern needs at least one phase", s.Name)
		}
		probePhases := 0
		for i, phase := range s.Phases {
			if phase.IsSilence() {
				continue
			}
			probePhases++
			if err := phase.Profile.Validate(); err != nil {
				return fmt.Errorf("scenario %s phase %d: %w", s.Name, i+1, err)
			}
		}
		if probePhases == 0 {
			return fmt.Errorf("scenario %s: sequential pattern needs at least one probe phase", s.Name)
		}
	case PatternConcurrent:
		if err := s.Background.Profile.Validate(); err != nil {
			return fmt.Errorf("scenario %s background: %w", s.Name, err)
		}
		if err := s.Foreground.Profile.Validate(); err != nil {
			return fmt.Errorf("scenario %s foreground: %w", s.Name, err)
		}
		if s.Settle < 0 {
			return fmt.Errorf("scenario %s: settle delay must be >= 0", s.Name)
		}
	case PatternSweep:
		if len(s.Sweep.Hops) == 0 {
			return fmt.Errorf("scenario %s: sweep needs at least one hop value", s.Name)
		}
		for _, hop := range s.Sweep.Hops {
			if hop < 1 || hop > 255 {
				return fmt.Errorf("scenario %s: sweep hop %d out of range 1..255", s.Name, hop)
			}
		}
		if err := s.Sweep.Profile.Validate(); err != nil {
			return fmt.Errorf("scenario %s sweep profile: %w", s.Name, err)
		}
	default:
		return fmt.Errorf("scenario %s: unknown pattern %q", s.Name, string(s.Pattern))
	}
	return nil
}

// stepCount returns the number of engine steps the scenario resolves to,
// used for phase-of-N status reporting.
func (s Scenario) stepCount() int {
	switch s.Pattern {
	case PatternSequential:
		return len(s.Phases)
	case PatternConcurrent:
		return 2
	case PatternSweep:
		return len(s.Sweep.Hops)
	default:
		return 0
	}
}
