package kafkacfg

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNoBrokerID is returned when a fragment has no broker.id.
	ErrNoBrokerID = errors.New("missing broker.id")
	// ErrNoZKConnect is returned when a fragment has no zookeeper.connect.
	ErrNoZKConnect = errors.New("missing zookeeper.connect")
)

// BrokerConfig is the node identity extracted from one broker's
// server.properties fragment: a numeric id, its advertised address, and the
// coordination-service connect string. The id must be unique per node in a
// cluster and every node must agree on the connect string.
type BrokerConfig struct {
	ID                  int
	Listeners           string
	AdvertisedListeners string
	LogDirs             string
	ZKConnect           ZKConnect
}

// BrokerFromProperties extracts a BrokerConfig from a parsed fragment.
func BrokerFromProperties(p *Properties) (BrokerConfig, error) {
	var b BrokerConfig

	id, ok := p.Get("broker.id")
	if !ok {
		return b, ErrNoBrokerID
	}

	n, err := strconv.Atoi(id)
	if err != nil {
		return b, fmt.Errorf("broker.id %q is not numeric", id)
	}
	b.ID = n

	zc, ok := p.Get("zookeeper.connect")
	if !ok {
		return b, ErrNoZKConnect
	}

	b.ZKConnect, err = ParseZKConnect(zc)
	if err != nil {
		return b, err
	}

	b.Listeners, _ = p.Get("listeners")
	b.AdvertisedListeners, _ = p.Get("advertised.listeners")
	b.LogDirs, _ = p.Get("log.dirs")

	return b, nil
}
