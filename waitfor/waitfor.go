// Package waitfor gates process startup on a dependency becoming network
// reachable. The gate polls a TCP address until a connection is accepted,
// then hands control to a target process by replacing the current process
// image. Reachability is the only signal checked; a dependency with an open
// listening socket may still be initializing.
package waitfor

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrDeadlineExceeded is returned when a bounded gate spends its entire
	// wait budget without the dependency accepting a connection.
	ErrDeadlineExceeded = errors.New("dependency unreachable at deadline")
	// ErrNoAddress is returned when a Gate is configured without a
	// dependency address.
	ErrNoAddress = errors.New("no dependency address configured")
)

// DefaultInterval is the polling interval used when none is configured.
const DefaultInterval = 1 * time.Second

// Dialer is satisfied by *net.Dialer and by test dialers.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds Gate initialization parameters. Address is a host:port the
// dependency listens on. Interval is the polling cadence. MaxInterval, if
// greater than Interval, enables exponential backoff capped at MaxInterval.
// Timeout bounds the total wait; zero means wait forever, relying on
// external supervision to bound wall-clock time.
type Config struct {
	Address     string
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
	Dialer      Dialer
	Logger      zerolog.Logger
}

// Gate blocks until its dependency address accepts a TCP connection. A Gate
// has two states: waiting and handed-off. The transition happens at most
// once, on the first successful dial.
type Gate struct {
	address     string
	interval    time.Duration
	maxInterval time.Duration
	timeout     time.Duration
	dialer      Dialer
	log         zerolog.Logger
	attempts    int
}

// NewGate takes a *Config and returns a *Gate, populating defaults for
// unset fields.
func NewGate(c *Config) (*Gate, error) {
	if c.Address == "" {
		return nil, ErrNoAddress
	}

	g := &Gate{
		address:     c.Address,
		interval:    c.Interval,
		maxInterval: c.MaxInterval,
		timeout:     c.Timeout,
		dialer:      c.Dialer,
		log:         c.Logger,
	}

	if g.interval == 0 {
		g.interval = DefaultInterval
	}

	if g.maxInterval < g.interval {
		g.maxInterval = g.interval
	}

	if g.dialer == nil {
		g.dialer = &net.Dialer{Timeout: g.interval}
	}

	return g, nil
}

// Attempts returns the number of dial attempts made so far.
func (g *Gate) Attempts() int {
	return g.attempts
}

// Wait polls the dependency address until a TCP connection is accepted. It
// returns nil on the first successful dial, ErrDeadlineExceeded if a
// configured timeout elapses first, or the context error if the context is
// canceled. With no timeout, Wait blocks indefinitely; an unreachable
// dependency must never allow the dependent process to start.
func (g *Gate) Wait(ctx context.Context) error {
	var deadline time.Time
	if g.timeout > 0 {
		deadline = time.Now().Add(g.timeout)
	}

	interval := g.interval

	for {
		g.attempts++

		dialCtx, cancel := context.WithTimeout(ctx, interval)
		conn, err := g.dialer.DialContext(dialCtx, "tcp", g.address)
		cancel()

		if err == nil {
			conn.Close()
			g.log.Info().Str("address", g.address).Int("attempts", g.attempts).
				Msg("dependency reachable")
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		g.log.Info().Str("address", g.address).Msg("waiting for dependency")

		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrDeadlineExceeded
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		// Back off if configured; a fixed interval is the default.
		if interval < g.maxInterval {
			interval *= 2
			if interval > g.maxInterval {
				interval = g.maxInterval
			}
		}
	}
}
