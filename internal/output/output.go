// Package output persists and renders scenario results. Thin I/O only; all
// numbers come from the result records.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pathprobehq/pathprobe/internal/analyze"
	"github.com/pathprobehq/pathprobe/pkg/types"
)

// WriteJSON persists the scenario result as an indented structured record.
func WriteJSON(path string, res *types.ScenarioResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scenario result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

// ReadJSON loads a persisted scenario result.
func ReadJSON(path string) (*types.ScenarioResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	var res types.ScenarioResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	return &res, nil
}

// RenderText writes a human-readable summary of the scenario result.
func RenderText(w io.Writer, res *types.ScenarioResult) {
	fmt.Fprintf(w, "scenario %s (run %s) %s\n", res.Scenario, res.RunID, res.State)
	for _, sess := range res.Sessions {
		s := sess.Result.Summary
		fmt.Fprintf(w, "  %-16s sent=%d recv=%d loss=%.2f%%", sess.Role, s.Sent, s.Received, s.LossPercent)
		if s.Received > 0 {
			fmt.Fprintf(w, " min=%s mean=%s p99=%s max=%s jitter=%s",
				s.MinRTT, s.MeanRTT, s.P99RTT, s.MaxRTT, s.JitterRTT)
		}
		if sess.Result.Partial {
			fmt.Fprintf(w, " (partial)")
		}
		fmt.Fprintln(w)
		if len(s.LossRuns) > 0 {
			fmt.Fprintf(w, "  %-16s loss runs:", "")
			for _, run := range s.LossRuns {
				fmt.Fprintf(w, " [%d+%d]", run.Start, run.Length)
			}
			fmt.Fprintln(w)
		}
	}
}

// RenderComparison writes a one-line summary of a delta.
func RenderComparison(w io.Writer, c analyze.Comparison) {
	direction := "B slower"
	sign := ""
	if c.Difference > 0 {
		sign = "+"
	} else if c.Difference < 0 {
		direction = "B faster"
	} else {
		direction = "equal"
	}
	fmt.Fprintf(w, "%s: A=%s B=%s delta=%s%s (%.1f%%, %s)", c.Metric, c.A, c.B, sign, c.Difference, 100*c.Percent, direction)
	if c.Significant {
		fmt.Fprintf(w, " SIGNIFICANT")
	}
	fmt.Fprintln(w)
}

// RenderPerHop writes the ordered per-hop latency profile.
func RenderPerHop(w io.Writer, hops []analyze.HopSummary) {
	for _, h := range hops {
		if h.Summary.Received == 0 {
			fmt.Fprintf(w, "  hop %2d: no replies (%.0f%% loss)\n", h.Hop, h.Summary.LossPercent)
			continue
		}
		fmt.Fprintf(w, "  hop %2d: mean=%s p99=%s loss=%.2f%%\n", h.Hop, h.Summary.MeanRTT, h.Summary.P99RTT, h.Summary.LossPercent)
	}
}
