// Package session executes one traffic profile against one target and
// collects the per-probe outcomes into a Result.
package session

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pathprobehq/pathprobe/internal/prober"
	"github.com/pathprobehq/pathprobe/internal/stats"
	"github.com/pathprobehq/pathprobe/pkg/types"
)

// defaultTimeoutCeiling bounds the per-probe reply wait when the profile's
// interval is shorter than a realistic round trip.
const defaultTimeoutCeiling = time.Second

type Runner struct {
	dialer  prober.Dialer
	now     func() time.Time
	ceiling time.Duration
	limiter *rate.Limiter
	logger  *log.Logger
}

type Option func(*Runner)

func WithNow(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithTimeoutCeiling sets the minimum per-probe reply timeout. The effective
// timeout is the larger of this ceiling and the profile interval.
func WithTimeoutCeiling(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.ceiling = d
		}
	}
}

// WithRateCap applies a global packets-per-second cap across everything this
// runner sends, taking precedence over the profile's nominal schedule.
func WithRateCap(pps int) Option {
	return func(r *Runner) {
		if pps > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(pps), 1)
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(dialer prober.Dialer, opts ...Option) *Runner {
	r := &Runner{
		dialer:  dialer,
		now:     time.Now,
		ceiling: defaultTimeoutCeiling,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type finalized struct {
	outcome types.ProbeOutcome
}

// Run executes the profile against the target. Probe n is scheduled at
// start + n*interval, computed from the fixed start so scheduling error never
// accumulates across probes. Individual probe loss is recorded, never fatal.
// Cancellation stops further sends and returns the outcomes finalized so far
// as a valid partial result.
func (r *Runner) Run(ctx context.Context, profile types.Profile, target prober.Target) (*types.Result, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	p, err := r.dialer.Dial(ctx, target, profile)
	if err != nil {
		return nil, fmt.Errorf("session start: %w", err)
	}
	defer p.Close()

	timeout := profile.Interval
	if timeout < r.ceiling {
		timeout = r.ceiling
	}

	start := r.now()
	outCh := make(chan finalized, profile.Count)
	var wg sync.WaitGroup

	for seq := 0; seq < profile.Count; seq++ {
		if err := r.sleepUntil(ctx, start.Add(time.Duration(seq)*profile.Interval)); err != nil {
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				break
			}
		}

		wg.Add(1)
		go func(seq int) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			out, err := p.Probe(probeCtx, seq)
			if err != nil {
				if ctx.Err() != nil {
					// Cancelled in flight: the probe is not finalized.
					return
				}
				if r.logger != nil {
					r.logger.Printf("probe %d transport failure: %v", seq, err)
				}
				sentAt := out.SentAt
				if sentAt.IsZero() {
					sentAt = r.now()
				}
				outCh <- finalized{types.ProbeOutcome{Sequence: seq, SentAt: sentAt, Lost: true}}
				return
			}
			if out.TimedOut {
				if ctx.Err() != nil {
					// The session deadline expired, not the per-probe
					// timeout: the probe's fate was never determined.
					return
				}
				outCh <- finalized{types.ProbeOutcome{Sequence: seq, SentAt: out.SentAt, Lost: true}}
				return
			}
			outCh <- finalized{types.ProbeOutcome{
				Sequence:   seq,
				SentAt:     out.SentAt,
				ReceivedAt: out.ReceivedAt,
				RTT:        out.RTT,
			}}
		}(seq)
	}

	wg.Wait()
	close(outCh)

	outcomes := make([]types.ProbeOutcome, 0, profile.Count)
	for f := range outCh {
		outcomes = append(outcomes, f.outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Sequence < outcomes[j].Sequence })

	result := &types.Result{
		Target:      target.String(),
		Profile:     profile,
		StartedAt:   start,
		CompletedAt: r.now(),
		Outcomes:    outcomes,
		Summary:     stats.Summarize(outcomes),
		Partial:     len(outcomes) < profile.Count,
	}
	return result, nil
}

func (r *Runner) sleepUntil(ctx context.Context, due time.Time) error {
	d := due.Sub(r.now())
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
