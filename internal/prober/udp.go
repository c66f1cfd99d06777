package prober

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/pathprobehq/pathprobe/pkg/types"
)

const (
	headerMagic = 0x70717072 // "pqpr"
	headerLen   = 16
)

// UDPDialer opens UDP echo probers against a responder. The probe payload is
// a 16-byte header (magic, sequence, send timestamp) padded to the profile's
// payload size; the responder echoes it verbatim.
type UDPDialer struct {
	now func() time.Time
}

type UDPOption func(*UDPDialer)

func WithClock(now func() time.Time) UDPOption {
	return func(d *UDPDialer) {
		if now != nil {
			d.now = now
		}
	}
}

func NewUDPDialer(opts ...UDPOption) *UDPDialer {
	d := &UDPDialer{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *UDPDialer) Dial(ctx context.Context, target Target, profile types.Profile) (Prober, error) {
	netName, err := network("udp", target.Family)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	raddr, err := net.ResolveUDPAddr(netName, target.String())
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrUnreachable, target, err)
	}

	var laddr *net.UDPAddr
	if target.Interface != "" {
		laddr, err = interfaceAddr(target.Interface, target.Family)
		if err != nil {
			return nil, fmt.Errorf("%w: egress interface %s: %v", ErrUnreachable, target.Interface, err)
		}
	}

	conn, err := net.DialUDP(netName, laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnreachable, target, err)
	}

	if err := applyMarking(conn, target.Family, profile); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply packet marking: %w", err)
	}
	if profile.DontFragment {
		if err := setDontFragment(conn, target.Family); err != nil {
			conn.Close()
			return nil, fmt.Errorf("forbid fragmentation: %w", err)
		}
	}

	payload := profile.PayloadSize
	if payload < headerLen {
		payload = headerLen
	}

	p := &udpProber{
		conn:    conn,
		now:     d.now,
		payload: payload,
		pending: make(map[uint32]chan time.Time),
	}
	go p.readLoop()
	return p, nil
}

// applyMarking sets the hop limit and DSCP class on the connected socket.
// Zero TTL and an empty class leave the kernel defaults in place.
func applyMarking(conn *net.UDPConn, family types.Family, profile types.Profile) error {
	tos := 0
	if profile.Class != "" {
		var err error
		tos, err = profile.Class.TOS()
		if err != nil {
			return err
		}
	}

	if family == types.FamilyIPv6 {
		pc := ipv6.NewConn(conn)
		if profile.TTL > 0 {
			if err := pc.SetHopLimit(profile.TTL); err != nil {
				return fmt.Errorf("set hop limit %d: %w", profile.TTL, err)
			}
		}
		if profile.Class != "" {
			if err := pc.SetTrafficClass(tos); err != nil {
				return fmt.Errorf("set traffic class %s: %w", profile.Class, err)
			}
		}
		return nil
	}

	pc := ipv4.NewConn(conn)
	if profile.TTL > 0 {
		if err := pc.SetTTL(profile.TTL); err != nil {
			return fmt.Errorf("set ttl %d: %w", profile.TTL, err)
		}
	}
	if profile.Class != "" {
		if err := pc.SetTOS(tos); err != nil {
			return fmt.Errorf("set tos for %s: %w", profile.Class, err)
		}
	}
	return nil
}

func interfaceAddr(name string, family types.Family) (*net.UDPAddr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP
		if family == types.FamilyIPv6 {
			if ip.To4() == nil && !ip.IsLinkLocalUnicast() {
				return &net.UDPAddr{IP: ip}, nil
			}
		} else if ip.To4() != nil {
			return &net.UDPAddr{IP: ip}, nil
		}
	}
	return nil, fmt.Errorf("no usable %s address on interface", family)
}

type udpProber struct {
	conn    *net.UDPConn
	now     func() time.Time
	payload int

	mu      sync.Mutex
	pending map[uint32]chan time.Time
	closed  bool
}

func (p *udpProber) Probe(ctx context.Context, seq int) (Outcome, error) {
	buf := make([]byte, p.payload)
	binary.BigEndian.PutUint32(buf[0:4], headerMagic)
	binary.BigEndian.PutUint32(buf[4:8], uint32(seq))

	ch := make(chan time.Time, 1)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Outcome{}, fmt.Errorf("prober closed")
	}
	p.pending[uint32(seq)] = ch
	p.mu.Unlock()
	defer p.unregister(uint32(seq))

	sentAt := p.now()
	binary.BigEndian.PutUint64(buf[8:16], uint64(sentAt.UnixNano()))
	if _, err := p.conn.Write(buf); err != nil {
		return Outcome{}, fmt.Errorf("send probe %d: %w", seq, err)
	}

	select {
	case receivedAt := <-ch:
		return Outcome{
			SentAt:     sentAt,
			ReceivedAt: receivedAt,
			RTT:        receivedAt.Sub(sentAt),
		}, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return Outcome{SentAt: sentAt, TimedOut: true}, nil
		}
		return Outcome{}, ctx.Err()
	}
}

func (p *udpProber) unregister(seq uint32) {
	p.mu.Lock()
	delete(p.pending, seq)
	p.mu.Unlock()
}

// readLoop demuxes echoed replies to the probe waiting on the sequence
// number. Replies arriving after their probe timed out are dropped.
func (p *udpProber) readLoop() {
	buf := make([]byte, 65536)
	for {
		n, err := p.conn.Read(buf)
		if err != nil {
			return
		}
		receivedAt := p.now()
		if n < headerLen || binary.BigEndian.Uint32(buf[0:4]) != headerMagic {
			continue
		}
		seq := binary.BigEndian.Uint32(buf[4:8])

		p.mu.Lock()
		ch, ok := p.pending[seq]
		p.mu.Unlock()
		if ok {
			select {
			case ch <- receivedAt:
			default:
			}
		}
	}
}

func (p *udpProber) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.conn.Close()
}
