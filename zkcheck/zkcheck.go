// Package zkcheck probes a legacy coordination-service ensemble: session
// level reachability beyond a bare TCP accept, and broker registration
// state under the ensemble's /brokers/ids path. It complements the static
// cluster validation in kafkacfg with a view of what actually registered.
package zkcheck

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	zkclient "github.com/go-zookeeper/zk"

	"github.com/imroyan/KafkaClusterSetup/kafkacfg"
)

var (
	// ErrNotReady is returned when no session is established within the
	// configured timeout.
	ErrNotReady = errors.New("no ZooKeeper session established")
)

// Client provides the minimal coordination-service surface used by probes.
type Client interface {
	Ready() bool
	Exists(path string) (bool, error)
	Children(path string) ([]string, error)
	Close()
}

// Config holds Client initialization parameters. Ensemble carries the host
// set and optional chroot; SessionTimeout bounds session establishment.
type Config struct {
	Ensemble       kafkacfg.ZKConnect
	SessionTimeout time.Duration
}

// zkHandler implements Client against a real ensemble.
type zkHandler struct {
	client *zkclient.Conn
	chroot string
}

// NewClient connects to the configured ensemble. The connection is
// asynchronous; use Ready or WaitReady to confirm a session.
func NewClient(c *Config) (Client, error) {
	if len(c.Ensemble.Hosts) == 0 {
		return nil, kafkacfg.ErrEmptyConnect
	}

	timeout := c.SessionTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	conn, _, err := zkclient.Connect(c.Ensemble.Hosts, timeout, zkclient.WithLogInfo(false))
	if err != nil {
		return nil, err
	}

	return &zkHandler{client: conn, chroot: c.Ensemble.Chroot}, nil
}

func (z *zkHandler) Ready() bool {
	switch z.client.State() {
	case zkclient.StateConnected, zkclient.StateHasSession:
		return true
	}

	return false
}

func (z *zkHandler) Exists(path string) (bool, error) {
	ok, _, err := z.client.Exists(z.chroot + path)
	return ok, err
}

func (z *zkHandler) Children(path string) ([]string, error) {
	children, _, err := z.client.Children(z.chroot + path)
	return children, err
}

func (z *zkHandler) Close() {
	z.client.Close()
}

// WaitReady polls a client until it reports a session or the timeout
// elapses.
func WaitReady(c Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for !c.Ready() {
		if time.Now().After(deadline) {
			return ErrNotReady
		}

		time.Sleep(250 * time.Millisecond)
	}

	return nil
}

// RegisteredBrokerIDs returns the numeric ids currently registered under
// /brokers/ids, ascending. Non-numeric entries are an error; the path not
// existing yet reads as no registrations.
func RegisteredBrokerIDs(c Client) ([]int, error) {
	ok, err := c.Exists("/brokers/ids")
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, nil
	}

	children, err := c.Children("/brokers/ids")
	if err != nil {
		return nil, err
	}

	var ids []int
	for _, child := range children {
		id, err := strconv.Atoi(child)
		if err != nil {
			return nil, fmt.Errorf("unexpected znode %q under /brokers/ids", child)
		}

		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids, nil
}

// MissingBrokers returns the expected ids absent from registered,
// ascending.
func MissingBrokers(registered, expected []int) []int {
	have := map[int]bool{}
	for _, id := range registered {
		have[id] = true
	}

	var missing []int
	for _, id := range expected {
		if !have[id] {
			missing = append(missing, id)
		}
	}

	sort.Ints(missing)

	return missing
}
