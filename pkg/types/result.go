package types

import "time"

// ProbeOutcome records the fate of one transmitted probe. ReceivedAt is the
// zero time and Lost is true when no reply arrived within the probe timeout.
type ProbeOutcome struct {
	Sequence   int           `json:"seq" yaml:"seq"`
	SentAt     time.Time     `json:"sent_at" yaml:"sent_at"`
	ReceivedAt time.Time     `json:"received_at,omitempty" yaml:"received_at,omitempty"`
	RTT        time.Duration `json:"rtt_ns,omitempty" yaml:"rtt_ns,omitempty"`
	Lost       bool          `json:"lost" yaml:"lost"`
}

// LossRun is one contiguous run of lost sequence numbers.
type LossRun struct {
	Start  int `json:"start" yaml:"start"`
	Length int `json:"length" yaml:"length"`
}

// Summary holds the derived statistics for one session's outcomes.
type Summary struct {
	Sent        int           `json:"sent" yaml:"sent"`
	Received    int           `json:"received" yaml:"received"`
	LossCount   int           `json:"loss_count" yaml:"loss_count"`
	LossPercent float64       `json:"loss_pct" yaml:"loss_pct"`
	MinRTT      time.Duration `json:"min_rtt_ns" yaml:"min_rtt_ns"`
	MeanRTT     time.Duration `json:"mean_rtt_ns" yaml:"mean_rtt_ns"`
	P99RTT      time.Duration `json:"p99_rtt_ns" yaml:"p99_rtt_ns"`
	MaxRTT      time.Duration `json:"max_rtt_ns" yaml:"max_rtt_ns"`
	JitterRTT   time.Duration `json:"jitter_rtt_ns" yaml:"jitter_rtt_ns"`
	LossRuns    []LossRun     `json:"loss_runs,omitempty" yaml:"loss_runs,omitempty"`
}

// Result is the record of one session run: the ordered outcomes (order equals
// sequence number) plus the summary. Partial marks results cut short by
// cancellation; such results remain valid.
type Result struct {
	Target      string         `json:"target" yaml:"target"`
	Profile     Profile        `json:"profile" yaml:"profile"`
	StartedAt   time.Time      `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time      `json:"completed_at" yaml:"completed_at"`
	Outcomes    []ProbeOutcome `json:"outcomes" yaml:"outcomes"`
	Summary     Summary        `json:"summary" yaml:"summary"`
	Partial     bool           `json:"partial,omitempty" yaml:"partial,omitempty"`
}

// SessionResult tags a Result with its role inside a scenario (phase name,
// stream name, or sweep point). Hop carries the varied hop-limit for sweep
// sessions and is zero otherwise.
type SessionResult struct {
	Role   string  `json:"role" yaml:"role"`
	Hop    int     `json:"hop,omitempty" yaml:"hop,omitempty"`
	Result *Result `json:"result" yaml:"result"`
}

// ScenarioState is the lifecycle state of one scenario engine run.
type ScenarioState string

const (
	ScenarioPending   ScenarioState = "pending"
	ScenarioRunning   ScenarioState = "running"
	ScenarioCompleted ScenarioState = "completed"
	ScenarioAborted   ScenarioState = "aborted"
)

// ScenarioResult aggregates the session results of one scenario run. It is
// owned by the engine run that produced it and never mutated afterwards.
type ScenarioResult struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	Scenario    string          `json:"scenario" yaml:"scenario"`
	State       ScenarioState   `json:"state" yaml:"state"`
	StartedAt   time.Time       `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time       `json:"completed_at" yaml:"completed_at"`
	Sessions    []SessionResult `json:"sessions" yaml:"sessions"`
}

// Session returns the first session result tagged with role, or nil.
func (r *ScenarioResult) Session(role string) *SessionResult {
	for i := range r.Sessions {
		if r.Sessions[i].Role == role {
			return &r.Sessions[i]
		}
	}
	return nil
}
