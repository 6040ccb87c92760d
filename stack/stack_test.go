package stack

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"

	"github.com/imroyan/KafkaClusterSetup/compose"
	"github.com/imroyan/KafkaClusterSetup/kafkacfg"
	"github.com/imroyan/KafkaClusterSetup/promcfg"
)

func TestBuildDefaults(t *testing.T) {
	d, err := Build(Options{})
	assert.Nil(t, err)

	assert.Equal(t, []int{1, 2, 3}, d.BrokerIDs())
	assert.Len(t, d.BrokerFragments, 3)

	// One zookeeper, three brokers, collector, dashboard, router, two
	// exporters.
	assert.Len(t, d.Compose.Services, 9)

	assert.Equal(t, model.Duration(15*time.Second), d.Prometheus.Global.ScrapeInterval)
	assert.Equal(t, model.Duration(15*time.Second), d.Prometheus.Global.EvaluationInterval)
}

func TestBuildRejectsUnverifiedBrokerImage(t *testing.T) {
	_, err := Build(Options{KafkaImage: "bitnami/kafka:3.6.0"})
	assert.True(t, errors.Is(err, kafkacfg.ErrOverrideUnverified))

	_, err = Build(Options{KafkaImage: "bitnami/kafka:latest"})
	assert.True(t, errors.Is(err, kafkacfg.ErrUnpinnedImage))
}

func TestBuildVerify(t *testing.T) {
	d, err := Build(Options{})
	assert.Nil(t, err)
	assert.Nil(t, d.Verify())
}

func TestBuildVerifyCatchesDrift(t *testing.T) {
	d, err := Build(Options{})
	assert.Nil(t, err)

	// Point a scrape job at a service the compose file doesn't run.
	d.Prometheus.ScrapeConfigs = append(d.Prometheus.ScrapeConfigs, promcfg.ScrapeConfig{
		JobName: "broker-jmx",
		StaticConfigs: []promcfg.StaticConfig{
			{Targets: []string{"jmx-exporter:5556"}},
		},
	})

	errs := d.Verify()
	assert.Len(t, errs, 1)
}

func TestBuildVerifyCatchesClusterDrift(t *testing.T) {
	d, err := Build(Options{})
	assert.Nil(t, err)

	// Hand-edit one fragment onto a different ensemble.
	d.BrokerFragments["server-2.properties"].Set("zookeeper.connect", "other-zk:2181")

	errs := d.Verify()
	assert.Len(t, errs, 1)
}

func TestBrokerEnvironmentForcesLegacyMode(t *testing.T) {
	d, err := Build(Options{})
	assert.Nil(t, err)

	for _, name := range []string{"kafka1", "kafka2", "kafka3"} {
		svc := d.Compose.Services[name]
		assert.Equal(t, "no", svc.Environment["KAFKA_ENABLE_KRAFT"], name)
		assert.Equal(t, []string{"zookeeper"}, svc.DependsOn, name)
		assert.Equal(t, []string{"/usr/local/bin/zkwait"}, svc.Entrypoint, name)
		// The image doesn't ship the wrapper; the built binary is mounted.
		assert.Contains(t, svc.Volumes, "./bin/zkwait:/usr/local/bin/zkwait", name)
	}
}

func TestBuildVerifyCatchesUnmountedEntrypoint(t *testing.T) {
	d, err := Build(Options{})
	assert.Nil(t, err)

	// Drop the wrapper mount from one broker; its entrypoint now names a
	// binary nothing provides.
	svc := d.Compose.Services["kafka1"]
	var kept []string
	for _, v := range svc.Volumes {
		if !strings.HasPrefix(v, "./bin/zkwait:") {
			kept = append(kept, v)
		}
	}
	svc.Volumes = kept

	errs := d.Verify()
	assert.Len(t, errs, 1)
}

func TestBuildVerifyCatchesOverReplication(t *testing.T) {
	d, err := Build(Options{BrokerCount: 1})
	assert.Nil(t, err)

	d.BrokerFragments["server-1.properties"].Set("offsets.topic.replication.factor", "3")

	errs := d.Verify()
	assert.Len(t, errs, 1)
}

func TestRender(t *testing.T) {
	d, err := Build(Options{})
	assert.Nil(t, err)

	dir := t.TempDir()
	assert.Nil(t, d.Render(dir))

	expected := []string{
		"docker-compose.yml",
		"kafka/server-1.properties",
		"kafka/server-2.properties",
		"kafka/server-3.properties",
		"prometheus/prometheus.yml",
		"prometheus/alert.rules.yml",
		"alertmanager/alertmanager.yml",
		"grafana/provisioning/datasources/prometheus.yml",
		"grafana/provisioning/dashboards/provider.yml",
	}

	for _, name := range expected {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s rendered: %s", name, err)
		}
	}

	// The rendered tree parses back cleanly.
	b, err := os.ReadFile(filepath.Join(dir, "docker-compose.yml"))
	assert.Nil(t, err)

	p, err := compose.Parse(b)
	assert.Nil(t, err)
	assert.Nil(t, compose.Lint(p))

	b, err = os.ReadFile(filepath.Join(dir, "prometheus/alert.rules.yml"))
	assert.Nil(t, err)

	f, err := promcfg.ParseRuleFile(b)
	assert.Nil(t, err)
	assert.Equal(t, d.Rules, f)
}

func TestBuildSingleBroker(t *testing.T) {
	d, err := Build(Options{BrokerCount: 1})
	assert.Nil(t, err)

	assert.Equal(t, []int{1}, d.BrokerIDs())

	// A one-broker cluster can't replicate the offsets topic three ways.
	rf, ok := d.BrokerFragments["server-1.properties"].Get("offsets.topic.replication.factor")
	assert.True(t, ok)
	assert.Equal(t, "1", rf)

	assert.Nil(t, d.Verify())
}
