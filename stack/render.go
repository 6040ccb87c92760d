package stack

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Render writes the deployment tree under dir:
//
//	docker-compose.yml
//	kafka/server-<id>.properties
//	prometheus/prometheus.yml
//	prometheus/alert.rules.yml
//	alertmanager/alertmanager.yml
//	grafana/provisioning/datasources/prometheus.yml
//	grafana/provisioning/dashboards/provider.yml
//
// Paths match the bind mounts the compose file declares.
func (d *Deployment) Render(dir string) error {
	files := map[string]func() ([]byte, error){
		"docker-compose.yml":            d.Compose.Render,
		"prometheus/prometheus.yml":     d.Prometheus.Render,
		"prometheus/" + ruleFileName:    d.Rules.Render,
		"alertmanager/alertmanager.yml": d.Alertmanager.Render,
		"grafana/provisioning/datasources/prometheus.yml": d.Datasources.Render,
		"grafana/provisioning/dashboards/provider.yml":    d.Dashboards.Render,
	}

	for name, p := range d.BrokerFragments {
		p := p
		files[filepath.Join("kafka", name)] = func() ([]byte, error) {
			return p.Render(), nil
		}
	}

	var names []string
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := files[name]()
		if err != nil {
			return fmt.Errorf("rendering %s: %s", name, err)
		}

		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}

		if err := os.WriteFile(path, b, 0o644); err != nil {
			return err
		}
	}

	return nil
}
