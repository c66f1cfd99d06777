// Package prober abstracts the round-trip probe capability the session runner
// drives. Implementations own packet construction and timestamping; the
// orchestration layer only sees per-sequence outcomes.
package prober

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/pathprobehq/pathprobe/pkg/types"
)

// ErrUnreachable is wrapped by Dial failures so callers can fail a session
// fast, before any probe is transmitted.
var ErrUnreachable = errors.New("target unreachable")

// Target identifies the remote responder and the local egress to reach it.
type Target struct {
	Host      string
	Port      int
	Family    types.Family
	Interface string
}

func (t Target) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Outcome reports one probe exchange. TimedOut marks a probe whose reply did
// not arrive within the caller's deadline; that is loss, not an error. A
// non-nil error from Probe means transport-level failure instead.
type Outcome struct {
	SentAt     time.Time
	ReceivedAt time.Time
	RTT        time.Duration
	TimedOut   bool
}

// Prober sends individual probes to the target it was dialed for. Probe may
// be called concurrently for distinct sequence numbers.
type Prober interface {
	Probe(ctx context.Context, seq int) (Outcome, error)
	Close() error
}

// Dialer opens a Prober for one target/profile pair. Dial performs the
// session's reachability check: resolution or socket failures abort the
// session before anything is sent.
type Dialer interface {
	Dial(ctx context.Context, target Target, profile types.Profile) (Prober, error)
}

func network(base string, family types.Family) (string, error) {
	switch family {
	case "", types.FamilyIPv4:
		return base + "4", nil
	case types.FamilyIPv6:
		return base + "6", nil
	default:
		return "", fmt.Errorf("unknown address family %q", string(family))
	}
}
