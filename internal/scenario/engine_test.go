package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pathprobehq/pathprobe/internal/prober"
	"github.com/pathprobehq/pathprobe/pkg/types"
)

type call struct {
	profile types.Profile
	start   time.Time
	end     time.Time
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	fn    func(ctx context.Context, profile types.Profile) (*types.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, profile types.Profile, target prober.Target) (*types.Result, error) {
	start := time.Now()
	res, err := f.fn(ctx, profile)
	f.mu.Lock()
	f.calls = append(f.calls, call{profile: profile, start: start, end: time.Now()})
	f.mu.Unlock()
	return res, err
}

func (f *fakeRunner) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func okResult(profile types.Profile) *types.Result {
	outcomes := make([]types.ProbeOutcome, profile.Count)
	for i := range outcomes {
		outcomes[i] = types.ProbeOutcome{Sequence: i, RTT: 300 * time.Microsecond}
	}
	return &types.Result{
		Profile:  profile,
		Outcomes: outcomes,
		Summary:  types.Summary{Sent: profile.Count, Received: profile.Count},
	}
}

func lostResult(profile types.Profile) *types.Result {
	outcomes := make([]types.ProbeOutcome, profile.Count)
	for i := range outcomes {
		outcomes[i] = types.ProbeOutcome{Sequence: i, Lost: true}
	}
	return &types.Result{
		Profile:  profile,
		Outcomes: outcomes,
		Summary:  types.Summary{Sent: profile.Count, LossCount: profile.Count, LossPercent: 100},
	}
}

func probePhaseProfile(count int) types.Profile {
	return types.Profile{Count: count, Interval: time.Millisecond, Family: types.FamilyIPv4}
}

func engineTarget() prober.Target {
	return prober.Target{Host: "203.0.113.9", Port: 7640, Family: types.FamilyIPv4}
}

func TestSequentialWithSilenceGap(t *testing.T) {
	const silence = 50 * time.Millisecond

	runner := &fakeRunner{fn: func(ctx context.Context, profile types.Profile) (*types.Result, error) {
		return okResult(profile), nil
	}}
	e := New(runner)

	sc := Scenario{
		Name:    "idle-return",
		Pattern: PatternSequential,
		Phases: []Phase{
			{Role: "phase 1", Profile: probePhaseProfile(10)},
			{Role: "phase 2", Silence: silence},
			{Role: "phase 3", Profile: probePhaseProfile(10)},
		},
	}

	res, err := e.Execute(context.Background(), sc, engineTarget())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.State != types.ScenarioCompleted {
		t.Fatalf("expected completed state, got %s", res.State)
	}
	if len(res.Sessions) != 2 {
		t.Fatalf("expected 2 probe sessions, got %d", len(res.Sessions))
	}
	if res.Sessions[0].Role != "phase 1" || res.Sessions[1].Role != "phase 3" {
		t.Fatalf("sessions out of phase order: %s, %s", res.Sessions[0].Role, res.Sessions[1].Role)
	}

	calls := runner.snapshot()
	if len(calls) != 2 {
		t.Fatalf("expected 2 runner calls, got %d", len(calls))
	}
	if gap := calls[1].start.Sub(calls[0].end); gap < silence {
		t.Fatalf("silence gap too short: %s < %s", gap, silence)
	}
}

func TestSequentialAbortPreservesPriorResults(t *testing.T) {
	calls := atomic.Int32{}
	runner := &fakeRunner{fn: func(ctx context.Context, profile types.Profile) (*types.Result, error) {
		if calls.Add(1) == 2 {
			return nil, fmt.Errorf("session start: %w", prober.ErrUnreachable)
		}
		return okResult(profile), nil
	}}
	e := New(runner)

	sc := Scenario{
		Name:    "two-feeds",
		Pattern: PatternSequential,
		Phases: []Phase{
			{Role: "feed A", Profile: probePhaseProfile(5)},
			{Role: "feed B", Profile: probePhaseProfile(5)},
		},
	}

	res, err := e.Execute(context.Background(), sc, engineTarget())
	if !errors.Is(err, prober.ErrUnreachable) {
		t.Fatalf("expected unreachable error, got %v", err)
	}
	if res == nil || res.State != types.ScenarioAborted {
		t.Fatalf("expected aborted scenario result, got %+v", res)
	}
	if len(res.Sessions) != 1 || res.Sessions[0].Role != "feed A" {
		t.Fatalf("expected feed A result preserved, got %+v", res.Sessions)
	}
	if err.Error() == "" || !errors.Is(err, prober.ErrUnreachable) {
		t.Fatalf("error should identify the failed phase: %v", err)
	}
}

func TestConcurrentForegroundWaitsForSettle(t *testing.T) {
	const settle = 50 * time.Millisecond

	bgProfile := probePhaseProfile(1000)
	fgProfile := probePhaseProfile(10)

	runner := &fakeRunner{fn: func(ctx context.Context, profile types.Profile) (*types.Result, error) {
		if profile.Count == bgProfile.Count {
			// Long-running background flood.
			select {
			case <-time.After(150 * time.Millisecond):
			case <-ctx.Done():
			}
			return okResult(profile), nil
		}
		return okResult(profile), nil
	}}
	e := New(runner)

	sc := Scenario{
		Name:       "qos-ef-under-load",
		Pattern:    PatternConcurrent,
		Background: Stream{Role: "cs0 flood", Profile: bgProfile},
		Foreground: Stream{Role: "ef probe", Profile: fgProfile},
		Settle:     settle,
	}

	res, err := e.Execute(context.Background(), sc, engineTarget())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(res.Sessions) != 2 {
		t.Fatalf("expected both sessions retained, got %d", len(res.Sessions))
	}
	if res.Sessions[0].Role != "ef probe" {
		t.Fatalf("foreground session must be reported first, got %s", res.Sessions[0].Role)
	}
	if res.Sessions[1].Role != "cs0 flood" {
		t.Fatalf("background session must be retained, got %s", res.Sessions[1].Role)
	}

	calls := runner.snapshot()
	if len(calls) != 2 {
		t.Fatalf("expected 2 runner calls, got %d", len(calls))
	}
	var bgStart, fgStart time.Time
	for _, c := range calls {
		if c.profile.Count == bgProfile.Count {
			bgStart = c.start
		} else {
			fgStart = c.start
		}
	}
	if wait := fgStart.Sub(bgStart); wait < settle {
		t.Fatalf("foreground started %s after background, want >= %s", wait, settle)
	}
}

func TestConcurrentReadySignalGatesForeground(t *testing.T) {
	bgProfile := probePhaseProfile(1000)
	fgProfile := probePhaseProfile(10)

	fgStarted := atomic.Bool{}
	bgRelease := make(chan struct{})
	runner := &fakeRunner{fn: func(ctx context.Context, profile types.Profile) (*types.Result, error) {
		if profile.Count == bgProfile.Count {
			select {
			case <-bgRelease:
			case <-ctx.Done():
			}
			return okResult(profile), nil
		}
		fgStarted.Store(true)
		return okResult(profile), nil
	}}

	ready := make(chan struct{})
	e := New(runner, WithReadySignal(ready))

	sc := Scenario{
		Name:       "qos-ef-under-load",
		Pattern:    PatternConcurrent,
		Background: Stream{Role: "cs0 flood", Profile: bgProfile},
		Foreground: Stream{Role: "ef probe", Profile: fgProfile},
	}

	resCh := make(chan *types.ScenarioResult, 1)
	errCh := make(chan error, 1)
	go func() {
		res, err := e.Execute(context.Background(), sc, engineTarget())
		resCh <- res
		errCh <- err
	}()

	time.Sleep(30 * time.Millisecond)
	if fgStarted.Load() {
		t.Fatalf("foreground started before readiness signal")
	}

	close(ready)
	close(bgRelease)

	select {
	case res := <-resCh:
		if err := <-errCh; err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !fgStarted.Load() {
			t.Fatalf("foreground never ran after readiness signal")
		}
		if len(res.Sessions) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(res.Sessions))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("scenario did not complete")
	}
}

func TestSweepContinuesThroughTotalLoss(t *testing.T) {
	runner := &fakeRunner{fn: func(ctx context.Context, profile types.Profile) (*types.Result, error) {
		if profile.TTL < 3 {
			return lostResult(profile), nil
		}
		return okResult(profile), nil
	}}
	e := New(runner)

	sc := Scenario{
		Name:    "ttl-sweep",
		Pattern: PatternSweep,
		Sweep: Sweep{
			Profile: probePhaseProfile(10),
			Hops:    []int{1, 2, 3},
		},
	}

	res, err := e.Execute(context.Background(), sc, engineTarget())
	if err != nil {
		t.Fatalf("sweep must complete despite total loss at low hops: %v", err)
	}
	if res.State != types.ScenarioCompleted {
		t.Fatalf("expected completed state, got %s", res.State)
	}
	if len(res.Sessions) != 3 {
		t.Fatalf("expected one result per hop, got %d", len(res.Sessions))
	}
	for i, hop := range []int{1, 2, 3} {
		sess := res.Sessions[i]
		if sess.Hop != hop || sess.Role != fmt.Sprintf("ttl=%d", hop) {
			t.Fatalf("unexpected session tag %+v for hop %d", sess, hop)
		}
		if sess.Result.Profile.TTL != hop {
			t.Fatalf("sweep did not vary the hop limit: %+v", sess.Result.Profile)
		}
	}
	if res.Sessions[0].Result.Summary.LossPercent != 100 {
		t.Fatalf("expected total loss at ttl=1")
	}
	if res.Sessions[2].Result.Summary.LossPercent != 0 {
		t.Fatalf("expected delivery at ttl=3")
	}
}

func TestSweepAbortsOnUnreachable(t *testing.T) {
	runner := &fakeRunner{fn: func(ctx context.Context, profile types.Profile) (*types.Result, error) {
		if profile.TTL == 2 {
			return nil, fmt.Errorf("session start: %w", prober.ErrUnreachable)
		}
		return lostResult(profile), nil
	}}
	e := New(runner)

	sc := Scenario{
		Name:    "ttl-sweep",
		Pattern: PatternSweep,
		Sweep:   Sweep{Profile: probePhaseProfile(10), Hops: []int{1, 2, 3}},
	}

	res, err := e.Execute(context.Background(), sc, engineTarget())
	if !errors.Is(err, prober.ErrUnreachable) {
		t.Fatalf("expected unreachable error, got %v", err)
	}
	if res.State != types.ScenarioAborted {
		t.Fatalf("expected aborted state, got %s", res.State)
	}
	if len(res.Sessions) != 1 {
		t.Fatalf("expected the ttl=1 result preserved, got %d sessions", len(res.Sessions))
	}
}

func TestExecuteRejectsInvalidScenario(t *testing.T) {
	runner := &fakeRunner{fn: func(ctx context.Context, profile types.Profile) (*types.Result, error) {
		t.Fatalf("runner must not be invoked for an invalid scenario")
		return nil, nil
	}}
	e := New(runner)

	sc := Scenario{Name: "empty", Pattern: PatternSequential}
	res, err := e.Execute(context.Background(), sc, engineTarget())
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if res != nil {
		t.Fatalf("scenario must not start on a configuration error")
	}
}

func TestCancelDuringSilenceKeepsPriorPhases(t *testing.T) {
	runner := &fakeRunner{fn: func(ctx context.Context, profile types.Profile) (*types.Result, error) {
		return okResult(profile), nil
	}}
	e := New(runner)

	sc := Scenario{
		Name:    "idle-return",
		Pattern: PatternSequential,
		Phases: []Phase{
			{Role: "phase 1", Profile: probePhaseProfile(5)},
			{Role: "gap", Silence: 5 * time.Second},
			{Role: "phase 3", Profile: probePhaseProfile(5)},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res, err := e.Execute(ctx, sc, engineTarget())
	if err != nil {
		t.Fatalf("cancellation is not an error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("silence wait did not honor cancellation, took %s", elapsed)
	}
	if res.State != types.ScenarioCompleted {
		t.Fatalf("expected completed state for a cancelled run, got %s", res.State)
	}
	if len(res.Sessions) != 1 || res.Sessions[0].Role != "phase 1" {
		t.Fatalf("expected phase 1 result preserved, got %+v", res.Sessions)
	}
}

func TestStatusTransitions(t *testing.T) {
	runner := &fakeRunner{fn: func(ctx context.Context, profile types.Profile) (*types.Result, error) {
		return okResult(profile), nil
	}}
	e := New(runner)

	if got := e.Status(); got.State != types.ScenarioPending {
		t.Fatalf("expected pending before execute, got %s", got.State)
	}

	sc := Scenario{
		Name:    "baseline",
		Pattern: PatternSequential,
		Phases:  []Phase{{Role: "baseline", Profile: probePhaseProfile(5)}},
	}
	if _, err := e.Execute(context.Background(), sc, engineTarget()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := e.Status()
	if got.State != types.ScenarioCompleted || got.Step != 1 || got.Steps != 1 {
		t.Fatalf("unexpected final status: %+v", got)
	}
}
