// Package preflight verifies the environment before a measurement run:
// target resolution, socket access, and host timer behavior.
package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pathprobehq/pathprobe/internal/config"
)

// Check is one preflight verdict.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

type Checker struct {
	resolve func(ctx context.Context, host string) ([]net.IPAddr, error)
	dial    func(network, addr string) (net.Conn, error)
	now     func() time.Time
}

type Option func(*Checker)

func WithResolver(resolve func(ctx context.Context, host string) ([]net.IPAddr, error)) Option {
	return func(c *Checker) {
		if resolve != nil {
			c.resolve = resolve
		}
	}
}

func WithDialer(dial func(network, addr string) (net.Conn, error)) Option {
	return func(c *Checker) {
		if dial != nil {
			c.dial = dial
		}
	}
}

func New(opts ...Option) *Checker {
	c := &Checker{
		resolve: func(ctx context.Context, host string) ([]net.IPAddr, error) {
			return net.DefaultResolver.LookupIPAddr(ctx, host)
		},
		dial: net.Dial,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes all checks applicable to the configuration. It never stops at
// the first failure; operators want the full picture.
func (c *Checker) Run(ctx context.Context, cfg config.Config) []Check {
	checks := []Check{
		c.checkResolution(ctx, cfg),
		c.checkSocket(cfg),
		c.checkTimer(),
	}
	if cfg.Run.Prober == "icmp" && cfg.Run.Privileged {
		checks = append(checks, c.checkPrivilege())
	}
	return checks
}

func (c *Checker) checkResolution(ctx context.Context, cfg config.Config) Check {
	check := Check{Name: "target resolves"}
	if cfg.Target.Host == "" {
		check.Detail = "no target host configured"
		return check
	}
	addrs, err := c.resolve(ctx, cfg.Target.Host)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	if len(addrs) == 0 {
		check.Detail = fmt.Sprintf("%s resolved to no addresses", cfg.Target.Host)
		return check
	}
	check.OK = true
	check.Detail = fmt.Sprintf("%s -> %s", cfg.Target.Host, addrs[0].String())
	return check
}

func (c *Checker) checkSocket(cfg config.Config) Check {
	check := Check{Name: "udp socket"}
	if cfg.Target.Host == "" {
		check.Detail = "no target host configured"
		return check
	}
	addr := net.JoinHostPort(cfg.Target.Host, fmt.Sprintf("%d", cfg.Target.Port))
	conn, err := c.dial("udp", addr)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	conn.Close()
	check.OK = true
	check.Detail = fmt.Sprintf("connected socket to %s", addr)
	return check
}

// checkTimer measures sleep overshoot; a heavily loaded or coarse-timer host
// cannot hold sub-millisecond probe schedules.
func (c *Checker) checkTimer() Check {
	check := Check{Name: "timer resolution"}
	const target = time.Millisecond
	var worst time.Duration
	for i := 0; i < 5; i++ {
		start := c.now()
		time.Sleep(target)
		if overshoot := c.now().Sub(start) - target; overshoot > worst {
			worst = overshoot
		}
	}
	check.Detail = fmt.Sprintf("worst 1ms sleep overshoot %s", worst)
	check.OK = worst < 5*time.Millisecond
	return check
}

func (c *Checker) checkPrivilege() Check {
	check := Check{Name: "icmp privilege"}
	if os.Geteuid() == 0 {
		check.OK = true
		check.Detail = "running as root"
		return check
	}
	check.Detail = "privileged icmp prober configured but not running as root"
	return check
}
