// Package promcfg models the metrics collector's configuration surface: the
// top level scrape/evaluation config and alerting rule files. Evaluation
// semantics belong to the collector binary; this package only guarantees
// that emitted files satisfy the external schema and that hand-maintained
// files survive a parse/render cycle.
package promcfg

import (
	"bytes"
	"fmt"
	"net"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

// Config is a prometheus.yml document.
type Config struct {
	Global        GlobalConfig    `yaml:"global"`
	RuleFiles     []string        `yaml:"rule_files,omitempty"`
	Alerting      *AlertingConfig `yaml:"alerting,omitempty"`
	ScrapeConfigs []ScrapeConfig  `yaml:"scrape_configs"`
}

// GlobalConfig holds the collector-wide scrape and rule evaluation cadence.
type GlobalConfig struct {
	ScrapeInterval     model.Duration `yaml:"scrape_interval,omitempty"`
	EvaluationInterval model.Duration `yaml:"evaluation_interval,omitempty"`
}

// AlertingConfig names the alert routers that receive firing/resolved
// alert sets.
type AlertingConfig struct {
	Alertmanagers []AlertmanagerConfig `yaml:"alertmanagers"`
}

// AlertmanagerConfig is one alert router endpoint set.
type AlertmanagerConfig struct {
	StaticConfigs []StaticConfig `yaml:"static_configs"`
}

// ScrapeConfig is one scrape job: a set of (host, port) targets polled on a
// fixed interval at a metrics path.
type ScrapeConfig struct {
	JobName        string         `yaml:"job_name"`
	ScrapeInterval model.Duration `yaml:"scrape_interval,omitempty"`
	MetricsPath    string         `yaml:"metrics_path,omitempty"`
	StaticConfigs  []StaticConfig `yaml:"static_configs"`
}

// StaticConfig is a statically configured target group.
type StaticConfig struct {
	Targets []string          `yaml:"targets"`
	Labels  map[string]string `yaml:"labels,omitempty"`
}

// ParseConfig parses a prometheus.yml document, rejecting unknown fields.
func ParseConfig(b []byte) (*Config, error) {
	var c Config

	if err := unmarshalStrict(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

// Render serializes the config.
func (c *Config) Render() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks schema-level constraints the collector would reject at
// startup: job names present and unique, every target a host:port pair.
func (c *Config) Validate() []error {
	var errs []error

	seen := map[string]bool{}
	for _, sc := range c.ScrapeConfigs {
		if sc.JobName == "" {
			errs = append(errs, fmt.Errorf("scrape config with empty job_name"))
			continue
		}

		if seen[sc.JobName] {
			errs = append(errs, fmt.Errorf("duplicate job_name %q", sc.JobName))
		}
		seen[sc.JobName] = true

		for _, g := range sc.StaticConfigs {
			for _, t := range g.Targets {
				if err := validateTarget(t); err != nil {
					errs = append(errs, fmt.Errorf("job %q: %s", sc.JobName, err))
				}
			}
		}
	}

	if c.Alerting != nil {
		for _, am := range c.Alerting.Alertmanagers {
			for _, g := range am.StaticConfigs {
				for _, t := range g.Targets {
					if err := validateTarget(t); err != nil {
						errs = append(errs, fmt.Errorf("alertmanager: %s", err))
					}
				}
			}
		}
	}

	return errs
}

// Targets returns all scrape targets keyed by job name.
func (c *Config) Targets() map[string][]string {
	m := map[string][]string{}

	for _, sc := range c.ScrapeConfigs {
		for _, g := range sc.StaticConfigs {
			m[sc.JobName] = append(m[sc.JobName], g.Targets...)
		}
	}

	return m
}

func validateTarget(t string) error {
	host, port, err := net.SplitHostPort(t)
	if err != nil || host == "" || port == "" {
		return fmt.Errorf("target %q is not a host:port pair", t)
	}

	return nil
}

// unmarshalStrict decodes YAML, erroring on fields the schema doesn't know.
func unmarshalStrict(b []byte, v interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	return dec.Decode(v)
}
