package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pathprobehq/pathprobe/internal/events"
	"github.com/pathprobehq/pathprobe/internal/prober"
	"github.com/pathprobehq/pathprobe/pkg/types"
)

// errSettleInterrupted marks a settle wait cut short by cancellation or by a
// sibling session failing.
var errSettleInterrupted = errors.New("settle wait interrupted")

// SessionRunner is the single capability the engine drives. The concrete
// session runner satisfies it; tests substitute fakes.
type SessionRunner interface {
	Run(ctx context.Context, profile types.Profile, target prober.Target) (*types.Result, error)
}

// Status reports where a scenario run currently is.
type Status struct {
	State types.ScenarioState
	Step  int
	Steps int
}

// Engine resolves a scenario into session runs. One engine drives one
// scenario run at a time.
type Engine struct {
	runner   SessionRunner
	recorder events.Recorder
	now      func() time.Time
	newID    func() string
	ready    <-chan struct{}

	mu     sync.Mutex
	status Status
}

type Option func(*Engine)

func WithRecorder(rec events.Recorder) Option {
	return func(e *Engine) {
		if rec != nil {
			e.recorder = rec
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunID fixes the run identifier source, letting a run-scoped context own
// the ID instead of the engine minting one.
func WithRunID(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// WithReadySignal replaces the concurrent pattern's fixed settle delay with
// an explicit readiness signal (for example an operator confirmation). The
// foreground stream starts when the channel is closed or receives.
func WithReadySignal(ready <-chan struct{}) Option {
	return func(e *Engine) {
		e.ready = ready
	}
}

func New(runner SessionRunner, opts ...Option) *Engine {
	e := &Engine{
		runner:   runner,
		recorder: events.NoopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
		status:   Status{State: types.ScenarioPending},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status returns the current run state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) setStatus(state types.ScenarioState, step, steps int) {
	e.mu.Lock()
	e.status = Status{State: state, Step: step, Steps: steps}
	e.mu.Unlock()
}

// Execute runs the scenario against the target. Configuration errors return
// before anything is sent. Connectivity errors abort the run but the returned
// ScenarioResult preserves every session already collected. Cancellation is
// not an error: the run completes with the partial sessions gathered so far.
func (e *Engine) Execute(ctx context.Context, sc Scenario, target prober.Target) (*types.ScenarioResult, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	steps := sc.stepCount()
	e.setStatus(types.ScenarioPending, 0, steps)

	res := &types.ScenarioResult{
		RunID:     e.newID(),
		Scenario:  sc.Name,
		State:     types.ScenarioRunning,
		StartedAt: e.now(),
	}
	e.setStatus(types.ScenarioRunning, 0, steps)
	e.record(types.EventScenarioStarted, sc.Name, "")

	var err error
	switch sc.Pattern {
	case PatternSequential:
		err = e.runSequential(ctx, sc, target, res)
	case PatternConcurrent:
		err = e.runConcurrent(ctx, sc, target, res)
	case PatternSweep:
		err = e.runSweep(ctx, sc, target, res)
	}

	res.CompletedAt = e.now()
	if err != nil {
		res.State = types.ScenarioAborted
		e.setStatus(types.ScenarioAborted, e.Status().Step, steps)
		e.record(types.EventScenarioAborted, sc.Name, "")
		return res, err
	}
	res.State = types.ScenarioCompleted
	e.setStatus(types.ScenarioCompleted, steps, steps)
	e.record(types.EventScenarioDone, sc.Name, "")
	return res, nil
}

func (e *Engine) runSequential(ctx context.Context, sc Scenario, target prober.Target, res *types.ScenarioResult) error {
	for i, phase := range sc.Phases {
		e.setStatus(types.ScenarioRunning, i+1, len(sc.Phases))

		if phase.IsSilence() {
			e.record(types.EventSilenceStarted, sc.Name, phase.Role)
			if !e.sleep(ctx, phase.Silence) {
				return nil // cancelled during silence; keep what we have
			}
			continue
		}

		e.record(types.EventPhaseStarted, sc.Name, phase.Role)
		result, err := e.runner.Run(ctx, phase.Profile, target)
		if err != nil {
			return fmt.Errorf("phase %d (%s): %w", i+1, phase.Role, err)
		}
		res.Sessions = append(res.Sessions, types.SessionResult{Role: phase.Role, Result: result})
		e.record(types.EventPhaseCompleted, sc.Name, phase.Role)

		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// runConcurrent starts the background stream, waits for the settle point, and
// only then runs the foreground stream, so the foreground measures against a
// background that has reached steady state. Both results are kept; the
// foreground's is the one a validation reads.
func (e *Engine) runConcurrent(ctx context.Context, sc Scenario, target prober.Target, res *types.ScenarioResult) error {
	var (
		resMu        sync.Mutex
		bgRes, fgRes *types.Result
	)

	g, gctx := errgroup.WithContext(ctx)

	e.setStatus(types.ScenarioRunning, 1, 2)
	e.record(types.EventPhaseStarted, sc.Name, sc.Background.Role)
	g.Go(func() error {
		r, err := e.runner.Run(gctx, sc.Background.Profile, target)
		resMu.Lock()
		bgRes = r
		resMu.Unlock()
		if err != nil {
			return fmt.Errorf("background (%s): %w", sc.Background.Role, err)
		}
		e.record(types.EventPhaseCompleted, sc.Name, sc.Background.Role)
		return nil
	})

	g.Go(func() error {
		e.record(types.EventSettleWait, sc.Name, sc.Foreground.Role)
		if e.ready != nil {
			select {
			case <-e.ready:
			case <-gctx.Done():
				return errSettleInterrupted
			}
		} else if !e.sleep(gctx, sc.Settle) {
			return errSettleInterrupted
		}

		e.setStatus(types.ScenarioRunning, 2, 2)
		e.record(types.EventPhaseStarted, sc.Name, sc.Foreground.Role)
		r, err := e.runner.Run(gctx, sc.Foreground.Profile, target)
		resMu.Lock()
		fgRes = r
		resMu.Unlock()
		if err != nil {
			return fmt.Errorf("foreground (%s): %w", sc.Foreground.Role, err)
		}
		e.record(types.EventPhaseCompleted, sc.Name, sc.Foreground.Role)
		return nil
	})

	err := g.Wait()

	// Foreground first: it is the session a validation reports on.
	if fgRes != nil {
		res.Sessions = append(res.Sessions, types.SessionResult{Role: sc.Foreground.Role, Result: fgRes})
	}
	if bgRes != nil {
		res.Sessions = append(res.Sessions, types.SessionResult{Role: sc.Background.Role, Result: bgRes})
	}

	if errors.Is(err, errSettleInterrupted) && ctx.Err() != nil {
		return nil // cancelled while settling; not an error
	}
	if err != nil {
		return err
	}
	return nil
}

// runSweep runs the profile once per hop value. A sweep point reporting total
// loss is an expected outcome (the probe expired mid-path); the sweep always
// continues through the remaining values.
func (e *Engine) runSweep(ctx context.Context, sc Scenario, target prober.Target, res *types.ScenarioResult) error {
	for i, hop := range sc.Sweep.Hops {
		e.setStatus(types.ScenarioRunning, i+1, len(sc.Sweep.Hops))

		profile := sc.Sweep.Profile
		profile.TTL = hop
		role := fmt.Sprintf("ttl=%d", hop)

		e.record(types.EventPhaseStarted, sc.Name, role)
		result, err := e.runner.Run(ctx, profile, target)
		if err != nil {
			return fmt.Errorf("sweep point %s: %w", role, err)
		}
		res.Sessions = append(res.Sessions, types.SessionResult{Role: role, Hop: hop, Result: result})
		e.record(types.EventPhaseCompleted, sc.Name, role)

		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// sleep waits for d or until ctx is cancelled, reporting whether the full
// duration elapsed.
func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) record(eventType types.EventType, scenarioName, role string) {
	e.recorder.Record(types.Event{
		Type:      eventType,
		Timestamp: e.now(),
		Scenario:  scenarioName,
		Role:      role,
	})
}
