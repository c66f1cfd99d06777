package types

import (
	"fmt"
	"time"
)

// ErrInvalidProfile is wrapped by all profile validation failures.
var ErrInvalidProfile = fmt.Errorf("invalid profile")

// TrafficClass names a DSCP forwarding class applied to probe packets.
type TrafficClass string

const (
	ClassCS0  TrafficClass = "cs0"
	ClassAF41 TrafficClass = "af41"
	ClassEF   TrafficClass = "ef"
	ClassCS6  TrafficClass = "cs6"
)

var dscpCodes = map[TrafficClass]int{
	ClassCS0:  0,
	ClassAF41: 34,
	ClassEF:   46,
	ClassCS6:  48,
}

// DSCP returns the 6-bit DSCP codepoint for the class.
func (c TrafficClass) DSCP() (int, error) {
	code, ok := dscpCodes[c]
	if !ok {
		return 0, fmt.Errorf("unknown traffic class %q", string(c))
	}
	return code, nil
}

// TOS returns the class as a full ToS/traffic-class byte (DSCP shifted past ECN).
func (c TrafficClass) TOS() (int, error) {
	code, err := c.DSCP()
	if err != nil {
		return 0, err
	}
	return code << 2, nil
}

// Family selects the IP address family a profile probes over.
type Family string

const (
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

const (
	// PathMTU is the assumed path MTU used to validate non-fragmenting profiles.
	PathMTU = 1500

	udpHeaderLen  = 8
	ipv4HeaderLen = 20
	ipv6HeaderLen = 40
)

// Profile describes one traffic pattern. Immutable once constructed; Validate
// must pass before a session transmits anything.
type Profile struct {
	Count        int           `json:"count" yaml:"count"`
	Interval     time.Duration `json:"interval_ns" yaml:"interval"`
	PayloadSize  int           `json:"payload_size" yaml:"payload_size"`
	Class        TrafficClass  `json:"class" yaml:"class"`
	TTL          int           `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	DontFragment bool          `json:"dont_fragment" yaml:"dont_fragment"`
	Family       Family        `json:"family" yaml:"family"`
}

// Duration returns the nominal send window, count x interval.
func (p Profile) Duration() time.Duration {
	return time.Duration(p.Count) * p.Interval
}

// WireSize returns the on-path packet size implied by the profile's payload.
func (p Profile) WireSize() int {
	overhead := ipv4HeaderLen + udpHeaderLen
	if p.Family == FamilyIPv6 {
		overhead = ipv6HeaderLen + udpHeaderLen
	}
	return p.PayloadSize + overhead
}

// Validate checks the profile invariants. A payload that would exceed the
// assumed path MTU is only valid when fragmentation is allowed, which marks
// the profile as an intentional fragmentation/jumbo test.
func (p Profile) Validate() error {
	if p.Count <= 0 {
		return fmt.Errorf("%w: count must be > 0, got %d", ErrInvalidProfile, p.Count)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("%w: interval must be > 0, got %s", ErrInvalidProfile, p.Interval)
	}
	if p.PayloadSize < 0 {
		return fmt.Errorf("%w: payload size must be >= 0, got %d", ErrInvalidProfile, p.PayloadSize)
	}
	if p.TTL < 0 || p.TTL > 255 {
		return fmt.Errorf("%w: ttl must be within 0..255, got %d", ErrInvalidProfile, p.TTL)
	}
	switch p.Family {
	case "", FamilyIPv4, FamilyIPv6:
	default:
		return fmt.Errorf("%w: unknown address family %q", ErrInvalidProfile, string(p.Family))
	}
	if p.Class != "" {
		if _, err := p.Class.DSCP(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
	}
	if p.DontFragment && p.WireSize() > PathMTU {
		return fmt.Errorf("%w: wire size %d exceeds path MTU %d with fragmentation forbidden",
			ErrInvalidProfile, p.WireSize(), PathMTU)
	}
	return nil
}
