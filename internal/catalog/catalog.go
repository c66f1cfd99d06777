// Package catalog holds the built-in named scenarios a command surface can
// enumerate and invoke. Entries are data only; the engine interprets them.
package catalog

import (
	"fmt"
	"sort"
	"time"

	"github.com/pathprobehq/pathprobe/internal/scenario"
	"github.com/pathprobehq/pathprobe/pkg/types"
)

func baselineProfile() types.Profile {
	return types.Profile{
		Count:        1000,
		Interval:     time.Millisecond,
		PayloadSize:  64,
		Class:        types.ClassCS0,
		DontFragment: true,
		Family:       types.FamilyIPv4,
	}
}

// Builtin returns the catalog in display order.
func Builtin() []scenario.Scenario {
	baseline := baselineProfile()

	efProbe := baseline
	efProbe.Count = 500
	efProbe.Class = types.ClassEF

	cs0Flood := baseline
	cs0Flood.Count = 100000
	cs0Flood.Interval = 100 * time.Microsecond
	cs0Flood.PayloadSize = 512

	sweepProfile := baseline
	sweepProfile.Count = 50
	sweepProfile.Interval = 20 * time.Millisecond

	jumbo := baseline
	jumbo.Count = 200
	jumbo.Interval = 5 * time.Millisecond
	jumbo.PayloadSize = 2000
	jumbo.DontFragment = false

	v6Baseline := baseline
	v6Baseline.Family = types.FamilyIPv6

	return []scenario.Scenario{
		{
			Name:        "baseline",
			Description: "1000 x 64B probes at 1ms, CS0, DF set: reference latency/jitter/loss for one feed.",
			Pattern:     scenario.PatternSequential,
			Phases:      []scenario.Phase{{Role: "baseline", Profile: baseline}},
		},
		{
			Name:        "feed-compare",
			Description: "Baseline shape for one feed; run once per feed and compare p99 with the delta command.",
			Pattern:     scenario.PatternSequential,
			Phases:      []scenario.Phase{{Role: "feed", Profile: baseline}},
		},
		{
			Name:        "qos-ef-under-load",
			Description: "CS0 512B flood at 10kpps with an EF 64B probe stream after a 2s settle: validates EF forwarding under congestion.",
			Pattern:     scenario.PatternConcurrent,
			Background:  scenario.Stream{Role: "cs0 flood", Profile: cs0Flood},
			Foreground:  scenario.Stream{Role: "ef probe", Profile: efProbe},
			Settle:      2 * time.Second,
		},
		{
			Name:        "idle-return",
			Description: "Probe burst, 10s silence, probe burst: surfaces first-packet-after-idle latency effects (ARP/ND, flow caches).",
			Pattern:     scenario.PatternSequential,
			Phases: []scenario.Phase{
				{Role: "phase 1", Profile: mustCount(baseline, 500)},
				{Role: "phase 2", Silence: 10 * time.Second},
				{Role: "phase 3", Profile: mustCount(baseline, 500)},
			},
		},
		{
			Name:        "ttl-sweep",
			Description: "50 x 64B probes per hop limit 1..8: per-hop latency fingerprint; total loss at low hops is expected.",
			Pattern:     scenario.PatternSweep,
			Sweep: scenario.Sweep{
				Profile: sweepProfile,
				Hops:    []int{1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		{
			Name:        "df-jumbo",
			Description: "200 x 2000B probes with fragmentation allowed: exercises fragmentation/jumbo handling on the path.",
			Pattern:     scenario.PatternSequential,
			Phases:      []scenario.Phase{{Role: "jumbo", Profile: jumbo}},
		},
		{
			Name:        "ipv6-baseline",
			Description: "Baseline shape over IPv6: compare against the IPv4 baseline with the delta command.",
			Pattern:     scenario.PatternSequential,
			Phases:      []scenario.Phase{{Role: "baseline-v6", Profile: v6Baseline}},
		},
	}
}

func mustCount(p types.Profile, count int) types.Profile {
	p.Count = count
	return p
}

// Lookup finds a built-in scenario by name.
func Lookup(name string) (scenario.Scenario, error) {
	for _, sc := range Builtin() {
		if sc.Name == name {
			return sc, nil
		}
	}
	return scenario.Scenario{}, fmt.Errorf("unknown scenario %q (try 'pathprobe list')", name)
}

// Names returns the catalog names, sorted.
func Names() []string {
	entries := Builtin()
	names := make([]string, 0, len(entries))
	for _, sc := range entries {
		names = append(names, sc.Name)
	}
	sort.Strings(names)
	return names
}
