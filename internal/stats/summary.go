// Package stats derives summary statistics from per-probe outcomes.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/pathprobehq/pathprobe/pkg/types"
)

// Summarize computes the summary for a session's outcomes. Outcomes must be
// ordered by sequence number; lost probes contribute to loss counters and the
// gap pattern, received probes to the RTT statistics.
func Summarize(outcomes []types.ProbeOutcome) types.Summary {
	s := types.Summary{Sent: len(outcomes)}
	if len(outcomes) == 0 {
		return s
	}

	rtts := make([]time.Duration, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Lost {
			s.LossCount++
			continue
		}
		rtts = append(rtts, o.RTT)
	}
	s.Received = len(rtts)
	s.LossPercent = 100 * float64(s.LossCount) / float64(s.Sent)
	s.LossRuns = LossRuns(outcomes)

	if len(rtts) == 0 {
		return s
	}
	sort.Slice(rtts, func(i, j int) bool { return rtts[i] < rtts[j] })

	var total time.Duration
	for _, rtt := range rtts {
		total += rtt
	}
	s.MinRTT = rtts[0]
	s.MaxRTT = rtts[len(rtts)-1]
	s.MeanRTT = total / time.Duration(len(rtts))
	s.P99RTT = percentileSorted(rtts, 99)
	s.JitterRTT = stdDev(rtts, s.MeanRTT)
	return s
}

// percentile returns the p-th percentile of the given RTT samples.
func percentile(rtts []time.Duration, p float64) time.Duration {
	if len(rtts) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(rtts))
	copy(sorted, rtts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return percentileSorted(sorted, p)
}

// percentileSorted uses the nearest-rank method over an ascending slice.
func percentileSorted(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func stdDev(rtts []time.Duration, mean time.Duration) time.Duration {
	if len(rtts) < 2 {
		return 0
	}
	var sq float64
	for _, rtt := range rtts {
		d := float64(rtt - mean)
		sq += d * d
	}
	return time.Duration(math.Sqrt(sq / float64(len(rtts))))
}

// LossRuns extracts the contiguous runs of lost sequence numbers, in order.
func LossRuns(outcomes []types.ProbeOutcome) []types.LossRun {
	var runs []types.LossRun
	for i := 0; i < len(outcomes); {
		if !outcomes[i].Lost {
			i++
			continue
		}
		start := outcomes[i].Sequence
		length := 0
		for i < len(outcomes) && outcomes[i].Lost {
			length++
			i++
		}
		runs = append(runs, types.LossRun{Start: start, Length: length})
	}
	return runs
}
