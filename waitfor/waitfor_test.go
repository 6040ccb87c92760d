package waitfor

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// closedAddr returns a loopback address with no listener behind it.
func closedAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	addr := l.Addr().String()
	l.Close()

	return addr
}

// flakyDialer fails a fixed number of attempts, then succeeds.
type flakyDialer struct {
	failures int
	attempts int
}

func (d *flakyDialer) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	d.attempts++
	if d.attempts <= d.failures {
		return nil, errors.New("connection refused")
	}

	c, s := net.Pipe()
	go s.Close()

	return c, nil
}

type execRecorder struct {
	calls int
	argv0 string
	argv  []string
	envv  []string
}

func (e *execRecorder) Exec(argv0 string, argv []string, envv []string) error {
	e.calls++
	e.argv0 = argv0
	e.argv = argv
	e.envv = envv

	return nil
}

func TestNewGateDefaults(t *testing.T) {
	_, err := NewGate(&Config{})
	assert.Equal(t, ErrNoAddress, err)

	g, err := NewGate(&Config{Address: "zookeeper:2181"})
	assert.Nil(t, err)
	assert.Equal(t, DefaultInterval, g.interval)
	assert.Equal(t, DefaultInterval, g.maxInterval)
	assert.NotNil(t, g.dialer)
}

func TestWaitUnreachable(t *testing.T) {
	var buf bytes.Buffer
	addr := closedAddr(t)

	g, err := NewGate(&Config{
		Address:  addr,
		Interval: 25 * time.Millisecond,
		Logger:   zerolog.New(&buf),
	})
	assert.Nil(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err = g.Wait(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)

	// Multiple attempts were made, each emitting a waiting message. The
	// address is carried as a field; the message itself is constant.
	assert.GreaterOrEqual(t, g.Attempts(), 2)
	assert.True(t, strings.Contains(buf.String(), `"message":"waiting for dependency"`))
	assert.True(t, strings.Contains(buf.String(), `"address":"`+addr+`"`))
}

func TestWaitDeadline(t *testing.T) {
	g, err := NewGate(&Config{
		Address:  closedAddr(t),
		Interval: 20 * time.Millisecond,
		Timeout:  100 * time.Millisecond,
		Logger:   zerolog.Nop(),
	})
	assert.Nil(t, err)

	err = g.Wait(context.Background())
	assert.Equal(t, ErrDeadlineExceeded, err)
}

func TestWaitBecomesReachable(t *testing.T) {
	addr := closedAddr(t)

	// Open the dependency port shortly after the gate starts polling.
	go func() {
		time.Sleep(100 * time.Millisecond)

		l, err := net.Listen("tcp", addr)
		if err != nil {
			return
		}

		time.Sleep(2 * time.Second)
		l.Close()
	}()

	g, err := NewGate(&Config{
		Address:  addr,
		Interval: 25 * time.Millisecond,
		Logger:   zerolog.Nop(),
	})
	assert.Nil(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.Nil(t, g.Wait(ctx))
}

func TestWaitBackoff(t *testing.T) {
	d := &flakyDialer{failures: 3}

	g, err := NewGate(&Config{
		Address:     "zookeeper:2181",
		Interval:    5 * time.Millisecond,
		MaxInterval: 10 * time.Millisecond,
		Dialer:      d,
		Logger:      zerolog.Nop(),
	})
	assert.Nil(t, err)

	assert.Nil(t, g.Wait(context.Background()))
	assert.Equal(t, 4, d.attempts)
}

func TestRunHandsOffOnce(t *testing.T) {
	d := &flakyDialer{failures: 5}

	g, err := NewGate(&Config{
		Address:  "zookeeper:2181",
		Interval: 5 * time.Millisecond,
		Dialer:   d,
		Logger:   zerolog.Nop(),
	})
	assert.Nil(t, err)

	h, err := NewHandoff(
		"/opt/kafka/bin/kafka-server-start.sh",
		[]string{"/etc/kafka/server.properties"},
		map[string]string{"KAFKA_ENABLE_KRAFT": "no"},
	)
	assert.Nil(t, err)

	rec := &execRecorder{}
	h.execer = rec

	assert.Nil(t, Run(context.Background(), g, h))

	// A single handoff, regardless of how many retries the gate needed.
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 6, g.Attempts())
	assert.Equal(t, "/opt/kafka/bin/kafka-server-start.sh", rec.argv0)
	assert.Equal(t, []string{
		"/opt/kafka/bin/kafka-server-start.sh",
		"/etc/kafka/server.properties",
	}, rec.argv)

	// The environment override is applied on every path that reaches exec.
	var found bool
	for _, kv := range rec.envv {
		if kv == "KAFKA_ENABLE_KRAFT=no" {
			found = true
		}
	}
	assert.True(t, found, "Expected KAFKA_ENABLE_KRAFT=no in handoff environment")
}

func TestRunNoHandoffWhileUnreachable(t *testing.T) {
	g, err := NewGate(&Config{
		Address:  closedAddr(t),
		Interval: 10 * time.Millisecond,
		Logger:   zerolog.Nop(),
	})
	assert.Nil(t, err)

	h, err := NewHandoff("/bin/true", nil, nil)
	assert.Nil(t, err)

	rec := &execRecorder{}
	h.execer = rec

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = Run(ctx, g, h)
	assert.NotNil(t, err)
	assert.Equal(t, 0, rec.calls, "Expected no handoff while the dependency is unreachable")
}

func TestNewHandoff(t *testing.T) {
	_, err := NewHandoff("", nil, nil)
	assert.Equal(t, ErrNoTarget, err)
}
