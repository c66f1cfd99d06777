// Package responder implements the remote echo peer the UDP prober measures
// against. It reflects every datagram back to its sender unchanged.
package responder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
)

type Responder struct {
	conn   *net.UDPConn
	logger *log.Logger
}

type Option func(*Responder)

func WithLogger(logger *log.Logger) Option {
	return func(r *Responder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Listen binds the echo socket. addr uses host:port form; port 0 picks an
// ephemeral port (useful in tests).
func Listen(addr string, opts ...Option) (*Responder, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", addr, err)
	}
	r := &Responder{conn: conn}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Addr returns the bound local address.
func (r *Responder) Addr() *net.UDPAddr {
	return r.conn.LocalAddr().(*net.UDPAddr)
}

// Serve echoes datagrams until ctx is cancelled or the socket fails.
func (r *Responder) Serve(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			r.conn.Close()
		case <-done:
		}
	}()

	buf := make([]byte, 65536)
	for {
		n, peer, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read probe: %w", err)
		}
		if _, err := r.conn.WriteToUDP(buf[:n], peer); err != nil {
			if r.logger != nil {
				r.logger.Printf("echo to %s failed: %v", peer, err)
			}
		}
	}
}

func (r *Responder) Close() error {
	return r.conn.Close()
}
