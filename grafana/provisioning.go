// Package grafana models the dashboard server's provisioning surface: the
// datasource registration file that points it at the collector's query API,
// and the dashboard provider file that loads dashboard JSON definitions
// from disk at startup. Both are loaded by the dashboard server once, at
// process start.
package grafana

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Datasources is a datasource provisioning document.
type Datasources struct {
	APIVersion  int          `yaml:"apiVersion"`
	Datasources []Datasource `yaml:"datasources"`
}

// Datasource registers one query backend.
type Datasource struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	URL       string `yaml:"url"`
	Access    string `yaml:"access"`
	IsDefault bool   `yaml:"isDefault,omitempty"`
	Editable  *bool  `yaml:"editable,omitempty"`
}

// DashboardProviders is a dashboard provider provisioning document.
type DashboardProviders struct {
	APIVersion int                 `yaml:"apiVersion"`
	Providers  []DashboardProvider `yaml:"providers"`
}

// DashboardProvider loads dashboard JSON blobs from a directory.
type DashboardProvider struct {
	Name            string                   `yaml:"name"`
	OrgID           int                      `yaml:"orgId,omitempty"`
	Folder          string                   `yaml:"folder,omitempty"`
	Type            string                   `yaml:"type"`
	DisableDeletion bool                     `yaml:"disableDeletion,omitempty"`
	Options         DashboardProviderOptions `yaml:"options"`
}

// DashboardProviderOptions holds the file provider's source path.
type DashboardProviderOptions struct {
	Path string `yaml:"path"`
}

// ParseDatasources parses a datasource provisioning document.
func ParseDatasources(b []byte) (*Datasources, error) {
	var d Datasources

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&d); err != nil {
		return nil, err
	}

	return &d, nil
}

// Render serializes the document.
func (d *Datasources) Render() ([]byte, error) {
	return yaml.Marshal(d)
}

// Validate checks that each datasource is fully specified and that at most
// one is flagged as the default backend.
func (d *Datasources) Validate() []error {
	var errs []error

	var defaults int
	for _, ds := range d.Datasources {
		if ds.Name == "" || ds.Type == "" || ds.URL == "" {
			errs = append(errs, fmt.Errorf("datasource %q: name, type, and url are required", ds.Name))
		}

		switch ds.Access {
		case "proxy", "direct":
		default:
			errs = append(errs, fmt.Errorf("datasource %q: access must be proxy or direct", ds.Name))
		}

		if ds.IsDefault {
			defaults++
		}
	}

	if defaults > 1 {
		errs = append(errs, fmt.Errorf("%d datasources flagged as default", defaults))
	}

	return errs
}

// Validate checks that each provider has a type and a source path.
func (p *DashboardProviders) Validate() []error {
	var errs []error

	for _, pr := range p.Providers {
		if pr.Name == "" {
			errs = append(errs, fmt.Errorf("dashboard provider with empty name"))
		}

		if pr.Type != "file" {
			errs = append(errs, fmt.Errorf("dashboard provider %q: unsupported type %q", pr.Name, pr.Type))
		}

		if pr.Options.Path == "" {
			errs = append(errs, fmt.Errorf("dashboard provider %q: options.path is required", pr.Name))
		}
	}

	return errs
}

// Render serializes the document.
func (p *DashboardProviders) Render() ([]byte, error) {
	return yaml.Marshal(p)
}
