package prober

import (
	"context"
	"fmt"
	"net"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/pathprobehq/pathprobe/pkg/types"
)

// icmpMinPayload is the smallest payload pro-bing can carry (timestamp plus
// tracker); smaller profile payloads are padded up to it.
const icmpMinPayload = 24

// ICMPDialer opens probers backed by ICMP echo. It covers plain latency
// profiles only: hop-limit and traffic-class control are not available on
// this path, so profiles that need them must use the UDP prober.
type ICMPDialer struct {
	privileged bool
}

type ICMPOption func(*ICMPDialer)

// WithPrivileged selects raw-socket mode instead of unprivileged UDP ICMP.
func WithPrivileged(privileged bool) ICMPOption {
	return func(d *ICMPDialer) {
		d.privileged = privileged
	}
}

func NewICMPDialer(opts ...ICMPOption) *ICMPDialer {
	d := &ICMPDialer{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *ICMPDialer) Dial(ctx context.Context, target Target, profile types.Profile) (Prober, error) {
	if profile.TTL != 0 {
		return nil, fmt.Errorf("%w: icmp prober cannot set the hop limit; use the udp prober", types.ErrInvalidProfile)
	}
	if profile.Class != "" && profile.Class != types.ClassCS0 {
		return nil, fmt.Errorf("%w: icmp prober cannot mark traffic class %s; use the udp prober", types.ErrInvalidProfile, profile.Class)
	}

	netName := "ip4"
	if target.Family == types.FamilyIPv6 {
		netName = "ip6"
	}

	resolver := probing.New(target.Host)
	resolver.SetNetwork(netName)
	if err := resolver.Resolve(); err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrUnreachable, target.Host, err)
	}

	size := profile.PayloadSize
	if size < icmpMinPayload {
		size = icmpMinPayload
	}

	return &icmpProber{
		addr:       resolver.IPAddr(),
		network:    netName,
		size:       size,
		privileged: d.privileged,
	}, nil
}

type icmpProber struct {
	addr       *net.IPAddr
	network    string
	size       int
	privileged bool
}

func (p *icmpProber) Probe(ctx context.Context, seq int) (Outcome, error) {
	pinger := probing.New("")
	pinger.SetIPAddr(p.addr)
	pinger.SetNetwork(p.network)
	pinger.SetPrivileged(p.privileged)
	pinger.Count = 1
	pinger.Size = p.size
	pinger.RecordRtts = true
	if deadline, ok := ctx.Deadline(); ok {
		pinger.Timeout = time.Until(deadline)
	}

	sentAt := time.Now()
	if err := pinger.RunWithContext(ctx); err != nil {
		if ctx.Err() == context.Canceled {
			return Outcome{}, ctx.Err()
		}
		return Outcome{}, fmt.Errorf("icmp probe %d: %w", seq, err)
	}
	if ctx.Err() == context.Canceled {
		return Outcome{}, ctx.Err()
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 || len(stats.Rtts) == 0 {
		return Outcome{SentAt: sentAt, TimedOut: true}, nil
	}
	rtt := stats.Rtts[0]
	return Outcome{
		SentAt:     sentAt,
		ReceivedAt: sentAt.Add(rtt),
		RTT:        rtt,
	}, nil
}

func (p *icmpProber) Close() error { return nil }
