package stack

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/imroyan/KafkaClusterSetup/compose"
	"github.com/imroyan/KafkaClusterSetup/kafkacfg"
)

// ruleFileName is the rule file rendered alongside prometheus.yml.
const ruleFileName = "alert.rules.yml"

// Verify checks the deployment's pieces individually and against each
// other: the compose project lints clean, every per-component config
// validates, the broker fragments form a coherent cluster, every scrape
// target resolves to a composed service, and every rule file the collector
// references is one the deployment renders.
func (d *Deployment) Verify() []error {
	var errs []error

	errs = append(errs, compose.Lint(d.Compose)...)
	errs = append(errs, d.Prometheus.Validate()...)
	errs = append(errs, d.Rules.Validate()...)
	errs = append(errs, d.Alertmanager.Validate()...)
	errs = append(errs, d.Datasources.Validate()...)
	errs = append(errs, d.Dashboards.Validate()...)

	errs = append(errs, d.verifyCluster()...)
	errs = append(errs, d.verifyTargets()...)
	errs = append(errs, d.verifyEntrypoints()...)

	for _, rf := range d.Prometheus.RuleFiles {
		if rf != ruleFileName {
			errs = append(errs, fmt.Errorf("collector references rule file %q, which is not rendered", rf))
		}
	}

	return errs
}

func (d *Deployment) verifyCluster() []error {
	var names []string
	for name := range d.BrokerFragments {
		names = append(names, name)
	}
	sort.Strings(names)

	var brokers []kafkacfg.BrokerConfig
	for _, name := range names {
		b, err := kafkacfg.BrokerFromProperties(d.BrokerFragments[name])
		if err != nil {
			return []error{fmt.Errorf("fragment %s: %s", name, err)}
		}

		brokers = append(brokers, b)
	}

	errs := kafkacfg.ValidateCluster(brokers)

	// The offsets topic cannot be replicated to more brokers than exist.
	for _, name := range names {
		v, ok := d.BrokerFragments[name].Get("offsets.topic.replication.factor")
		if !ok {
			continue
		}

		rf, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("fragment %s: bad offsets.topic.replication.factor %q", name, v))
			continue
		}

		if rf > len(names) {
			errs = append(errs, fmt.Errorf(
				"fragment %s: offsets.topic.replication.factor %d exceeds cluster size %d", name, rf, len(names)))
		}
	}

	return errs
}

// verifyEntrypoints requires every entrypoint override to name a binary
// some mount on the service provides. An override points past the image's
// own entrypoint, so the image cannot be assumed to ship it.
func (d *Deployment) verifyEntrypoints() []error {
	var names []string
	for name := range d.Compose.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		svc := d.Compose.Services[name]
		if len(svc.Entrypoint) == 0 {
			continue
		}

		bin := svc.Entrypoint[0]

		var mounted bool
		for _, v := range svc.Volumes {
			_, target, ok := strings.Cut(v, ":")
			if !ok {
				continue
			}

			if target == bin || strings.HasPrefix(bin, target+"/") {
				mounted = true
				break
			}
		}

		if !mounted {
			errs = append(errs, fmt.Errorf("service %s entrypoint %s is not provided by any mount", name, bin))
		}
	}

	return errs
}

// verifyTargets requires every scrape and alert-delivery target's host to
// be a composed service. The collector scraping itself addresses localhost.
func (d *Deployment) verifyTargets() []error {
	var errs []error

	check := func(kind, target string) {
		host, _, err := net.SplitHostPort(target)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s target %q: %s", kind, target, err))
			return
		}

		if host == "localhost" {
			return
		}

		if _, ok := d.Compose.Services[host]; !ok {
			errs = append(errs, fmt.Errorf("%s target %q does not resolve to a composed service", kind, target))
		}
	}

	for job, targets := range d.Prometheus.Targets() {
		for _, t := range targets {
			check(fmt.Sprintf("job %q", job), t)
		}
	}

	if d.Prometheus.Alerting != nil {
		for _, am := range d.Prometheus.Alerting.Alertmanagers {
			for _, g := range am.StaticConfigs {
				for _, t := range g.Targets {
					check("alertmanager", t)
				}
			}
		}
	}

	return errs
}
