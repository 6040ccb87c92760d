package kafkacfg

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func testFragment(id int, connect string) *Properties {
	src := fmt.Sprintf("broker.id=%d\nlisteners=PLAINTEXT://0.0.0.0:9092\nadvertised.listeners=PLAINTEXT://kafka%d:9092\nzookeeper.connect=%s\n", id, id, connect)
	p, _ := ParseProperties([]byte(src))

	return p
}

func testBrokers(t *testing.T, fragments ...*Properties) []BrokerConfig {
	t.Helper()

	var bs []BrokerConfig
	for _, p := range fragments {
		b, err := BrokerFromProperties(p)
		if err != nil {
			t.Fatal(err)
		}

		bs = append(bs, b)
	}

	return bs
}

func TestBrokerFromProperties(t *testing.T) {
	b, err := BrokerFromProperties(testFragment(1, "zookeeper:2181"))
	if err != nil {
		t.Fatal(err)
	}

	if b.ID != 1 {
		t.Errorf("Expected broker ID 1, got %d", b.ID)
	}

	if b.AdvertisedListeners != "PLAINTEXT://kafka1:9092" {
		t.Errorf("Unexpected advertised.listeners %q", b.AdvertisedListeners)
	}

	if b.ZKConnect.String() != "zookeeper:2181" {
		t.Errorf("Unexpected zookeeper.connect %q", b.ZKConnect.String())
	}
}

func TestBrokerFromPropertiesMissingFields(t *testing.T) {
	p, _ := ParseProperties([]byte("zookeeper.connect=zookeeper:2181\n"))
	if _, err := BrokerFromProperties(p); !errors.Is(err, ErrNoBrokerID) {
		t.Errorf("Expected ErrNoBrokerID, got %v", err)
	}

	p, _ = ParseProperties([]byte("broker.id=1\n"))
	if _, err := BrokerFromProperties(p); !errors.Is(err, ErrNoZKConnect) {
		t.Errorf("Expected ErrNoZKConnect, got %v", err)
	}

	p, _ = ParseProperties([]byte("broker.id=one\nzookeeper.connect=zookeeper:2181\n"))
	if _, err := BrokerFromProperties(p); err == nil {
		t.Error("Expected error for non-numeric broker.id")
	}
}

func TestValidateCluster(t *testing.T) {
	connect := "zk1:2181,zk2:2181,zk3:2181"

	brokers := testBrokers(t,
		testFragment(1, connect),
		testFragment(2, connect),
		testFragment(3, connect),
	)

	if errs := ValidateCluster(brokers); errs != nil {
		t.Errorf("Expected no errors, got %v", errs)
	}
}

func TestValidateClusterDuplicateID(t *testing.T) {
	connect := "zk1:2181,zk2:2181,zk3:2181"

	brokers := testBrokers(t,
		testFragment(1, connect),
		testFragment(1, connect),
		testFragment(3, connect),
	)

	errs := ValidateCluster(brokers)
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}

	if !strings.Contains(errs[0].Error(), "broker.id 1") {
		t.Errorf("Unexpected error %v", errs[0])
	}
}

func TestValidateClusterConnectMismatch(t *testing.T) {
	brokers := testBrokers(t,
		testFragment(1, "zk1:2181,zk2:2181,zk3:2181"),
		// Host order alone isn't a disagreement.
		testFragment(2, "zk3:2181,zk2:2181,zk1:2181"),
		// A missing ensemble member is.
		testFragment(3, "zk1:2181,zk2:2181"),
	)

	errs := ValidateCluster(brokers)
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d: %v", len(errs), errs)
	}

	if !strings.Contains(errs[0].Error(), "broker 3") {
		t.Errorf("Unexpected error %v", errs[0])
	}
}

func TestValidateClusterMultipleViolations(t *testing.T) {
	brokers := testBrokers(t,
		testFragment(1, "zk1:2181"),
		testFragment(1, "zk2:2181"),
	)

	// Both the shared id and the ensemble disagreement surface.
	errs := ValidateCluster(brokers)
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateClusterEmpty(t *testing.T) {
	if errs := ValidateCluster(nil); len(errs) != 1 {
		t.Error("Expected an error for an empty cluster")
	}
}
