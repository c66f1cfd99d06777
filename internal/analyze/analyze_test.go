package analyze

import (
	"errors"
	"testing"
	"time"

	"github.com/pathprobehq/pathprobe/pkg/types"
)

func resultWithP99(sent int, p99 time.Duration) *types.Result {
	return &types.Result{
		Summary: types.Summary{
			Sent:     sent,
			Received: sent,
			P99RTT:   p99,
		},
	}
}

func TestDeltaFlagsSignificance(t *testing.T) {
	a := resultWithP99(100, 500*time.Microsecond)
	b := resultWithP99(100, 600*time.Microsecond)

	cases := []struct {
		threshold   float64
		significant bool
	}{
		{0.10, true},
		{0.20, true}, // exactly at the threshold still flags
		{0.21, false},
		{0.50, false},
	}
	for _, tc := range cases {
		c, err := Delta(a, b, MetricP99, tc.threshold)
		if err != nil {
			t.Fatalf("delta: %v", err)
		}
		if c.Difference != 100*time.Microsecond {
			t.Fatalf("expected +100µs difference, got %s", c.Difference)
		}
		if c.Significant != tc.significant {
			t.Fatalf("threshold %v: expected significant=%v, got %v", tc.threshold, tc.significant, c.Significant)
		}
	}
}

func TestDeltaSignedDirection(t *testing.T) {
	a := resultWithP99(100, 600*time.Microsecond)
	b := resultWithP99(100, 500*time.Microsecond)

	c, err := Delta(a, b, MetricP99, 0.10)
	if err != nil {
		t.Fatalf("delta: %v", err)
	}
	if c.Difference != -100*time.Microsecond {
		t.Fatalf("expected -100µs (B faster), got %s", c.Difference)
	}
	if !c.Significant {
		t.Fatalf("16.7%% asymmetry should flag at a 10%% threshold")
	}
}

func TestDeltaIncomparable(t *testing.T) {
	cases := []struct {
		name string
		a, b *types.Result
	}{
		{"nil result", nil, resultWithP99(10, time.Millisecond)},
		{"mismatched counts", resultWithP99(10, time.Millisecond), resultWithP99(20, time.Millisecond)},
		{"nothing received", resultWithP99(10, time.Millisecond), &types.Result{
			Summary: types.Summary{Sent: 10, Received: 0, LossCount: 10},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Delta(tc.a, tc.b, MetricP99, 0.10); !errors.Is(err, ErrIncomparable) {
				t.Fatalf("expected ErrIncomparable, got %v", err)
			}
		})
	}
}

func TestDeltaUnknownMetric(t *testing.T) {
	a := resultWithP99(10, time.Millisecond)
	b := resultWithP99(10, time.Millisecond)
	if _, err := Delta(a, b, Metric("p42"), 0.10); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
}

func TestPerHopOrdersByHop(t *testing.T) {
	sessions := []types.SessionResult{
		{Role: "ttl=3", Hop: 3, Result: &types.Result{Summary: types.Summary{MeanRTT: 900 * time.Microsecond}}},
		{Role: "ttl=1", Hop: 1, Result: &types.Result{Summary: types.Summary{MeanRTT: 200 * time.Microsecond}}},
		{Role: "ttl=2", Hop: 2, Result: &types.Result{Summary: types.Summary{MeanRTT: 450 * time.Microsecond}}},
	}

	hops, err := PerHop(sessions)
	if err != nil {
		t.Fatalf("per-hop: %v", err)
	}
	if len(hops) != 3 {
		t.Fatalf("expected 3 hop summaries, got %d", len(hops))
	}
	for i, want := range []int{1, 2, 3} {
		if hops[i].Hop != want {
			t.Fatalf("expected hop %d at position %d, got %d", want, i, hops[i].Hop)
		}
	}
	if hops[0].Summary.MeanRTT >= hops[2].Summary.MeanRTT {
		t.Fatalf("expected cumulative latency to grow with hops")
	}
}

func TestPerHopRejectsUntaggedAndDuplicates(t *testing.T) {
	untagged := []types.SessionResult{{Role: "phase 1", Result: &types.Result{}}}
	if _, err := PerHop(untagged); !errors.Is(err, ErrIncomparable) {
		t.Fatalf("expected ErrIncomparable for untagged sessions, got %v", err)
	}

	dup := []types.SessionResult{
		{Role: "ttl=1", Hop: 1, Result: &types.Result{}},
		{Role: "ttl=1 again", Hop: 1, Result: &types.Result{}},
	}
	if _, err := PerHop(dup); !errors.Is(err, ErrIncomparable) {
		t.Fatalf("expected ErrIncomparable for duplicate hops, got %v", err)
	}

	if _, err := PerHop(nil); !errors.Is(err, ErrIncomparable) {
		t.Fatalf("expected ErrIncomparable for empty input, got %v", err)
	}
}

func TestClassifyLoss(t *testing.T) {
	burst := &types.Result{Summary: types.Summary{
		LossCount: 101,
		LossRuns:  []types.LossRun{{Start: 100, Length: 101}},
	}}
	uniform := &types.Result{Summary: types.Summary{
		LossCount: 9,
		LossRuns: []types.LossRun{
			{Start: 10, Length: 1}, {Start: 20, Length: 1}, {Start: 30, Length: 1},
			{Start: 40, Length: 1}, {Start: 50, Length: 1}, {Start: 60, Length: 1},
			{Start: 70, Length: 1}, {Start: 80, Length: 1}, {Start: 90, Length: 1},
		},
	}}
	clean := &types.Result{Summary: types.Summary{}}

	if got, err := ClassifyLoss(burst, 3); err != nil || got != LossBurst {
		t.Fatalf("expected burst, got %s (%v)", got, err)
	}
	if got, err := ClassifyLoss(uniform, 3); err != nil || got != LossUniform {
		t.Fatalf("expected uniform, got %s (%v)", got, err)
	}
	if got, err := ClassifyLoss(clean, 3); err != nil || got != LossNone {
		t.Fatalf("expected none, got %s (%v)", got, err)
	}
}

func TestClassifyLossThresholdIsTunable(t *testing.T) {
	r := &types.Result{Summary: types.Summary{
		LossCount: 4,
		LossRuns:  []types.LossRun{{Start: 5, Length: 2}, {Start: 40, Length: 2}},
	}}

	if got, _ := ClassifyLoss(r, 2); got != LossBurst {
		t.Fatalf("runs of 2 should be bursts at threshold 2, got %s", got)
	}
	if got, _ := ClassifyLoss(r, 3); got != LossUniform {
		t.Fatalf("runs of 2 should be uniform at threshold 3, got %s", got)
	}
	if _, err := ClassifyLoss(r, 1); err == nil {
		t.Fatalf("expected error for threshold below 2")
	}
}
