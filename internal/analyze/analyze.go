// Package analyze computes derived comparisons over completed results. All
// functions are pure: inputs are read-only and nothing is persisted.
package analyze

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pathprobehq/pathprobe/pkg/types"
)

// ErrIncomparable is wrapped when two results cannot be meaningfully
// compared; callers get this instead of a misleading number.
var ErrIncomparable = errors.New("incomparable results")

// Metric selects which summary statistic a delta compares.
type Metric string

const (
	MetricMin  Metric = "min"
	MetricMean Metric = "mean"
	MetricP99  Metric = "p99"
	MetricMax  Metric = "max"
)

func metricValue(s types.Summary, m Metric) (time.Duration, error) {
	switch m {
	case MetricMin:
		return s.MinRTT, nil
	case MetricMean:
		return s.MeanRTT, nil
	case MetricP99:
		return s.P99RTT, nil
	case MetricMax:
		return s.MaxRTT, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", string(m))
	}
}

// Comparison is the outcome of one delta between two results. Difference is
// signed B minus A: positive means B is slower. Percent is the magnitude of
// the difference relative to A.
type Comparison struct {
	Metric      Metric
	A           time.Duration
	B           time.Duration
	Difference  time.Duration
	Percent     float64
	Significant bool
}

// Delta compares one summary statistic between two results. threshold is the
// significance fraction (0.10 flags differences of 10% or more); a delta at
// exactly the threshold is flagged. Results with mismatched probe counts or
// no received probes are incomparable.
func Delta(a, b *types.Result, metric Metric, threshold float64) (Comparison, error) {
	if a == nil || b == nil {
		return Comparison{}, fmt.Errorf("%w: missing result", ErrIncomparable)
	}
	if a.Summary.Sent != b.Summary.Sent {
		return Comparison{}, fmt.Errorf("%w: probe counts differ (%d vs %d)",
			ErrIncomparable, a.Summary.Sent, b.Summary.Sent)
	}
	if a.Summary.Received == 0 || b.Summary.Received == 0 {
		return Comparison{}, fmt.Errorf("%w: a result has no received probes", ErrIncomparable)
	}

	va, err := metricValue(a.Summary, metric)
	if err != nil {
		return Comparison{}, err
	}
	vb, err := metricValue(b.Summary, metric)
	if err != nil {
		return Comparison{}, err
	}

	c := Comparison{
		Metric:     metric,
		A:          va,
		B:          vb,
		Difference: vb - va,
	}
	switch {
	case va > 0:
		c.Percent = math.Abs(float64(c.Difference)) / float64(va)
	case c.Difference != 0:
		c.Percent = math.Inf(1)
	}
	c.Significant = threshold > 0 && c.Percent >= threshold
	return c, nil
}

// HopSummary is one point of a per-hop latency profile.
type HopSummary struct {
	Hop     int
	Summary types.Summary
}

// PerHop orders a sweep's session results by their hop-limit value,
// approximating the cumulative latency contribution per hop. Sessions without
// a hop tag are rejected.
func PerHop(sessions []types.SessionResult) ([]HopSummary, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%w: no sweep results", ErrIncomparable)
	}
	seen := make(map[int]bool, len(sessions))
	out := make([]HopSummary, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Hop <= 0 {
			return nil, fmt.Errorf("%w: session %q carries no hop value", ErrIncomparable, sess.Role)
		}
		if seen[sess.Hop] {
			return nil, fmt.Errorf("%w: duplicate hop value %d", ErrIncomparable, sess.Hop)
		}
		seen[sess.Hop] = true
		out = append(out, HopSummary{Hop: sess.Hop, Summary: sess.Result.Summary})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hop < out[j].Hop })
	return out, nil
}

// LossClass characterizes the distribution of loss across sequence numbers.
type LossClass string

const (
	LossNone    LossClass = "none"
	LossBurst   LossClass = "burst"
	LossUniform LossClass = "uniform"
)

// ClassifyLoss inspects the result's loss-gap pattern. Loss is a burst when
// any contiguous run reaches minBurstRun lost probes, uniform when losses
// stay in shorter, scattered runs. minBurstRun is caller-supplied; there is
// no universally right cutoff.
func ClassifyLoss(r *types.Result, minBurstRun int) (LossClass, error) {
	if r == nil {
		return "", fmt.Errorf("%w: missing result", ErrIncomparable)
	}
	if minBurstRun < 2 {
		return "", fmt.Errorf("burst run threshold must be >= 2, got %d", minBurstRun)
	}
	runs := r.Summary.LossRuns
	if len(runs) == 0 {
		return LossNone, nil
	}
	for _, run := range runs {
		if run.Length >= minBurstRun {
			return LossBurst, nil
		}
	}
	return LossUniform, nil
}
