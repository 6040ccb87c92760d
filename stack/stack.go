// Package stack builds the reference deployment: a ZooKeeper-coordinated
// broker cluster plus its monitoring stack (collector, dashboard server,
// alert router, exporters), expressed as mutually consistent configuration
// for external binaries. Nothing here runs; the output is the declarative
// surface those binaries consume.
package stack

import (
	"fmt"
	"time"

	"github.com/prometheus/common/model"

	"github.com/imroyan/KafkaClusterSetup/amconfig"
	"github.com/imroyan/KafkaClusterSetup/compose"
	"github.com/imroyan/KafkaClusterSetup/grafana"
	"github.com/imroyan/KafkaClusterSetup/kafkacfg"
	"github.com/imroyan/KafkaClusterSetup/promcfg"
)

// Fixed, documented component ports.
const (
	PortKafkaClient   = 9092
	PortZKClient      = 2181
	PortZKPeer        = 2888
	PortZKElection    = 3888
	PortPrometheus    = 9090
	PortGrafana       = 3000
	PortAlertmanager  = 9093
	PortKafkaExporter = 9308
	PortNodeExporter  = 9100
)

// Default image references. The broker tag is deliberately pre-KRaft-cutover
// so the legacy-mode override is known effective (see kafkacfg).
const (
	DefaultKafkaImage         = "bitnami/kafka:3.2.3"
	DefaultZooKeeperImage     = "zookeeper:3.8.1"
	DefaultPrometheusImage    = "prom/prometheus:v2.44.0"
	DefaultGrafanaImage       = "grafana/grafana:9.5.2"
	DefaultAlertmanagerImage  = "prom/alertmanager:v0.25.0"
	DefaultKafkaExporterImage = "danielqsj/kafka-exporter:v1.6.0"
	DefaultNodeExporterImage  = "prom/node-exporter:v1.5.0"
)

// zkwaitPath is where the startup wrapper is mounted inside the broker
// containers.
const zkwaitPath = "/usr/local/bin/zkwait"

// Options control the generated deployment. Zero values take defaults.
type Options struct {
	BrokerCount int
	KafkaImage  string

	// ScrapeInterval doubles as the rule evaluation interval.
	ScrapeInterval model.Duration

	// Email channel for the alert router.
	AlertEmailTo  string
	SMTPSmarthost string
	SMTPFrom      string
}

// Deployment is the full generated configuration set.
type Deployment struct {
	Compose         *compose.Project
	Prometheus      *promcfg.Config
	Rules           *promcfg.RuleFile
	Alertmanager    *amconfig.Config
	Datasources     *grafana.Datasources
	Dashboards      *grafana.DashboardProviders
	BrokerFragments map[string]*kafkacfg.Properties

	brokerIDs []int
}

// BrokerIDs returns the generated broker ids ascending.
func (d *Deployment) BrokerIDs() []int {
	return d.brokerIDs
}

// Build assembles a Deployment from options.
func Build(o Options) (*Deployment, error) {
	if o.BrokerCount == 0 {
		o.BrokerCount = 3
	}

	if o.BrokerCount < 1 {
		return nil, fmt.Errorf("broker count must be positive")
	}

	if o.KafkaImage == "" {
		o.KafkaImage = DefaultKafkaImage
	}

	if o.ScrapeInterval == 0 {
		o.ScrapeInterval = model.Duration(15 * time.Second)
	}

	if o.AlertEmailTo == "" {
		o.AlertEmailTo = "ops@example.org"
	}

	if o.SMTPSmarthost == "" {
		o.SMTPSmarthost = "mailhog:1025"
	}

	if o.SMTPFrom == "" {
		o.SMTPFrom = "alertmanager@example.org"
	}

	// The override's effectiveness is version dependent; refuse to build a
	// deployment whose forcing mechanism is unverified.
	if err := kafkacfg.VerifyLegacyOverride(o.KafkaImage); err != nil {
		return nil, err
	}

	d := &Deployment{
		BrokerFragments: map[string]*kafkacfg.Properties{},
	}

	connect, err := kafkacfg.ParseZKConnect(fmt.Sprintf("zookeeper:%d", PortZKClient))
	if err != nil {
		return nil, err
	}

	// The offsets topic cannot be replicated beyond the cluster size.
	replication := o.BrokerCount
	if replication > 3 {
		replication = 3
	}

	for i := 1; i <= o.BrokerCount; i++ {
		d.brokerIDs = append(d.brokerIDs, i)
		d.BrokerFragments[brokerFragmentName(i)] = brokerFragment(i, connect, replication)
	}

	d.Compose = buildCompose(o)
	d.Prometheus = buildPrometheus(o)
	d.Rules = buildRules(o)
	d.Alertmanager = buildAlertmanager(o)
	d.Datasources = buildDatasources()
	d.Dashboards = buildDashboards()

	return d, nil
}

func brokerFragmentName(id int) string {
	return fmt.Sprintf("server-%d.properties", id)
}

func brokerFragment(id int, connect kafkacfg.ZKConnect, replication int) *kafkacfg.Properties {
	p := kafkacfg.NewProperties()

	p.Set("broker.id", fmt.Sprintf("%d", id))
	p.Set("listeners", fmt.Sprintf("PLAINTEXT://0.0.0.0:%d", PortKafkaClient))
	p.Set("advertised.listeners", fmt.Sprintf("PLAINTEXT://kafka%d:%d", id, PortKafkaClient))
	p.Set("log.dirs", "/bitnami/kafka/data")
	p.Set("zookeeper.connect", connect.String())
	p.Set("offsets.topic.replication.factor", fmt.Sprintf("%d", replication))

	return p
}

func buildCompose(o Options) *compose.Project {
	p := &compose.Project{
		Services: map[string]*compose.Service{},
		Volumes:  map[string]*compose.Volume{},
	}

	p.Services["zookeeper"] = &compose.Service{
		Image: DefaultZooKeeperImage,
		Ports: []string{
			fmt.Sprintf("%d:%d", PortZKClient, PortZKClient),
		},
		Volumes: []string{"zookeeper-data:/data"},
		Restart: "unless-stopped",
	}
	p.Volumes["zookeeper-data"] = &compose.Volume{}

	var brokerNames []string
	for i := 1; i <= o.BrokerCount; i++ {
		name := fmt.Sprintf("kafka%d", i)
		brokerNames = append(brokerNames, name)
		volume := fmt.Sprintf("%s-data", name)

		p.Services[name] = &compose.Service{
			Image: o.KafkaImage,
			// The wrapper gates broker start on the coordination service
			// accepting connections; depends_on below orders container
			// start only. The broker image does not ship the wrapper, so
			// the built binary is bind-mounted in.
			Entrypoint: []string{zkwaitPath},
			Command: []string{
				"-zk-addr", fmt.Sprintf("zookeeper:%d", PortZKClient),
				"-server-config", "/etc/kafka/server.properties",
				"-kafka-bin", "/opt/bitnami/scripts/kafka/run.sh",
			},
			Environment: kafkacfg.LegacyModeEnv(),
			Ports: []string{
				fmt.Sprintf("%d:%d", PortKafkaClient+(i-1)*100, PortKafkaClient),
			},
			Volumes: []string{
				fmt.Sprintf("%s:/bitnami/kafka", volume),
				fmt.Sprintf("./kafka/%s:/etc/kafka/server.properties", brokerFragmentName(i)),
				fmt.Sprintf("./bin/zkwait:%s", zkwaitPath),
			},
			DependsOn: []string{"zookeeper"},
			Restart:   "unless-stopped",
		}
		p.Volumes[volume] = &compose.Volume{}
	}

	p.Services["kafka-exporter"] = &compose.Service{
		Image:     DefaultKafkaExporterImage,
		Command:   kafkaExporterArgs(o.BrokerCount),
		Ports:     []string{fmt.Sprintf("%d:%d", PortKafkaExporter, PortKafkaExporter)},
		DependsOn: brokerNames,
		Restart:   "unless-stopped",
	}

	p.Services["node-exporter"] = &compose.Service{
		Image:   DefaultNodeExporterImage,
		Ports:   []string{fmt.Sprintf("%d:%d", PortNodeExporter, PortNodeExporter)},
		Restart: "unless-stopped",
	}

	p.Services["prometheus"] = &compose.Service{
		Image: DefaultPrometheusImage,
		Ports: []string{fmt.Sprintf("%d:%d", PortPrometheus, PortPrometheus)},
		Volumes: []string{
			"prometheus-data:/prometheus",
			"./prometheus/prometheus.yml:/etc/prometheus/prometheus.yml",
			"./prometheus/alert.rules.yml:/etc/prometheus/alert.rules.yml",
		},
		DependsOn: []string{"kafka-exporter", "node-exporter", "alertmanager"},
		Restart:   "unless-stopped",
	}
	p.Volumes["prometheus-data"] = &compose.Volume{}

	p.Services["alertmanager"] = &compose.Service{
		Image: DefaultAlertmanagerImage,
		Ports: []string{fmt.Sprintf("%d:%d", PortAlertmanager, PortAlertmanager)},
		Volumes: []string{
			"./alertmanager/alertmanager.yml:/etc/alertmanager/alertmanager.yml",
		},
		Restart: "unless-stopped",
	}

	p.Services["grafana"] = &compose.Service{
		Image: DefaultGrafanaImage,
		Ports: []string{fmt.Sprintf("%d:%d", PortGrafana, PortGrafana)},
		Volumes: []string{
			"grafana-data:/var/lib/grafana",
			"./grafana/provisioning:/etc/grafana/provisioning",
			"./grafana/dashboards:/var/lib/grafana/dashboards",
		},
		DependsOn: []string{"prometheus"},
		Restart:   "unless-stopped",
	}
	p.Volumes["grafana-data"] = &compose.Volume{}

	return p
}

func kafkaExporterArgs(brokers int) []string {
	var args []string
	for i := 1; i <= brokers; i++ {
		args = append(args, fmt.Sprintf("--kafka.server=kafka%d:%d", i, PortKafkaClient))
	}

	return args
}

func buildPrometheus(o Options) *promcfg.Config {
	return &promcfg.Config{
		Global: promcfg.GlobalConfig{
			ScrapeInterval:     o.ScrapeInterval,
			EvaluationInterval: o.ScrapeInterval,
		},
		RuleFiles: []string{"alert.rules.yml"},
		Alerting: &promcfg.AlertingConfig{
			Alertmanagers: []promcfg.AlertmanagerConfig{
				{StaticConfigs: []promcfg.StaticConfig{
					{Targets: []string{fmt.Sprintf("alertmanager:%d", PortAlertmanager)}},
				}},
			},
		},
		ScrapeConfigs: []promcfg.ScrapeConfig{
			{
				JobName: "prometheus",
				StaticConfigs: []promcfg.StaticConfig{
					{Targets: []string{fmt.Sprintf("localhost:%d", PortPrometheus)}},
				},
			},
			{
				JobName: "kafka",
				StaticConfigs: []promcfg.StaticConfig{
					{Targets: []string{fmt.Sprintf("kafka-exporter:%d", PortKafkaExporter)}},
				},
			},
			{
				JobName: "node",
				StaticConfigs: []promcfg.StaticConfig{
					{Targets: []string{fmt.Sprintf("node-exporter:%d", PortNodeExporter)}},
				},
			},
		},
	}
}

func buildRules(o Options) *promcfg.RuleFile {
	return &promcfg.RuleFile{
		Groups: []promcfg.RuleGroup{
			{
				Name: "kafka-cluster",
				Rules: []promcfg.Rule{
					{
						Alert: "KafkaBrokerDown",
						Expr:  fmt.Sprintf("kafka_brokers < %d", o.BrokerCount),
						For:   model.Duration(5 * time.Minute),
						Labels: map[string]string{
							"severity": "critical",
						},
						Annotations: map[string]string{
							"summary":     "Broker count below cluster size",
							"description": "Only {{ $value }} of the expected brokers are registered",
						},
					},
					{
						Alert: "KafkaUnderReplicatedPartitions",
						Expr:  "sum(kafka_topic_partition_under_replicated_partition) > 0",
						For:   model.Duration(10 * time.Minute),
						Labels: map[string]string{
							"severity": "warning",
						},
						Annotations: map[string]string{
							"summary":     "Under-replicated partitions present",
							"description": "{{ $value }} partitions are under-replicated",
						},
					},
				},
			},
			{
				Name: "host",
				Rules: []promcfg.Rule{
					{
						Alert: "HostOutOfDiskSpace",
						Expr:  `(node_filesystem_avail_bytes{mountpoint="/"} / node_filesystem_size_bytes{mountpoint="/"}) * 100 < 10`,
						For:   model.Duration(5 * time.Minute),
						Labels: map[string]string{
							"severity": "warning",
						},
						Annotations: map[string]string{
							"summary":     "Host disk nearly full",
							"description": "Disk on {{ $labels.instance }} is {{ $value }}% free",
						},
					},
				},
			},
		},
	}
}

func buildAlertmanager(o Options) *amconfig.Config {
	return &amconfig.Config{
		Global: &amconfig.GlobalConfig{
			ResolveTimeout: model.Duration(5 * time.Minute),
			SMTPSmarthost:  o.SMTPSmarthost,
			SMTPFrom:       o.SMTPFrom,
		},
		Route: amconfig.Route{
			Receiver:       "ops-email",
			GroupBy:        []string{"alertname"},
			GroupWait:      model.Duration(30 * time.Second),
			GroupInterval:  model.Duration(5 * time.Minute),
			RepeatInterval: model.Duration(4 * time.Hour),
		},
		Receivers: []amconfig.Receiver{
			{
				Name: "ops-email",
				EmailConfigs: []amconfig.EmailConfig{
					{
						To: o.AlertEmailTo,
						Text: "{{ range .Alerts }}{{ .Labels.alertname }}: " +
							"{{ .Annotations.summary }}\n{{ end }}",
					},
				},
			},
		},
	}
}

func buildDatasources() *grafana.Datasources {
	return &grafana.Datasources{
		APIVersion: 1,
		Datasources: []grafana.Datasource{
			{
				Name:      "Prometheus",
				Type:      "prometheus",
				URL:       fmt.Sprintf("http://prometheus:%d", PortPrometheus),
				Access:    "proxy",
				IsDefault: true,
			},
		},
	}
}

func buildDashboards() *grafana.DashboardProviders {
	return &grafana.DashboardProviders{
		APIVersion: 1,
		Providers: []grafana.DashboardProvider{
			{
				Name:    "kafka",
				Type:    "file",
				Options: grafana.DashboardProviderOptions{Path: "/var/lib/grafana/dashboards"},
			},
		},
	}
}
