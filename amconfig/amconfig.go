// Package amconfig models the alert router's configuration: a routing tree
// that groups and deduplicates firing alerts by label, timer settings for
// grouped dispatch, and receivers that render notifications through a
// templated channel. Grouping and dispatch semantics belong to the router
// binary; this package validates the file it consumes.
package amconfig

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

// Config is an alertmanager.yml document.
type Config struct {
	Global    *GlobalConfig `yaml:"global,omitempty"`
	Route     Route         `yaml:"route"`
	Receivers []Receiver    `yaml:"receivers"`
	Templates []string      `yaml:"templates,omitempty"`
}

// GlobalConfig carries defaults inherited by receivers, notably the SMTP
// relay used by email receivers.
type GlobalConfig struct {
	ResolveTimeout   model.Duration `yaml:"resolve_timeout,omitempty"`
	SMTPSmarthost    string         `yaml:"smtp_smarthost,omitempty"`
	SMTPFrom         string         `yaml:"smtp_from,omitempty"`
	SMTPAuthUsername string         `yaml:"smtp_auth_username,omitempty"`
	SMTPAuthPassword string         `yaml:"smtp_auth_password,omitempty"`
	SMTPRequireTLS   *bool          `yaml:"smtp_require_tls,omitempty"`
}

// Route is a node in the routing tree. Alerts are grouped by the GroupBy
// label keys; GroupWait delays the first notification of a new group,
// GroupInterval spaces updates, and RepeatInterval re-sends unresolved
// groups.
type Route struct {
	Receiver       string            `yaml:"receiver"`
	GroupBy        []string          `yaml:"group_by,omitempty"`
	GroupWait      model.Duration    `yaml:"group_wait,omitempty"`
	GroupInterval  model.Duration    `yaml:"group_interval,omitempty"`
	RepeatInterval model.Duration    `yaml:"repeat_interval,omitempty"`
	Match          map[string]string `yaml:"match,omitempty"`
	Routes         []Route           `yaml:"routes,omitempty"`
}

// Receiver is a named notification channel set.
type Receiver struct {
	Name         string        `yaml:"name"`
	EmailConfigs []EmailConfig `yaml:"email_configs,omitempty"`
}

// EmailConfig is a templated email channel.
type EmailConfig struct {
	To           string            `yaml:"to"`
	From         string            `yaml:"from,omitempty"`
	Smarthost    string            `yaml:"smarthost,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	HTML         string            `yaml:"html,omitempty"`
	Text         string            `yaml:"text,omitempty"`
	SendResolved *bool             `yaml:"send_resolved,omitempty"`
}

// Parse parses an alertmanager.yml document, rejecting unknown fields.
func Parse(b []byte) (*Config, error) {
	var c Config

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// Render serializes the config.
func (c *Config) Render() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks constraints the router would reject at startup: every
// route's receiver resolves to a declared receiver, receiver names are
// unique and non-empty, email channels have a destination, and notification
// body templates parse. The templating syntax supports conditionals and
// iteration over the alert set; only syntax is checked here.
func (c *Config) Validate() []error {
	var errs []error

	names := map[string]bool{}
	for _, r := range c.Receivers {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("receiver with empty name"))
			continue
		}

		if names[r.Name] {
			errs = append(errs, fmt.Errorf("duplicate receiver %q", r.Name))
		}
		names[r.Name] = true

		for _, ec := range r.EmailConfigs {
			if ec.To == "" {
				errs = append(errs, fmt.Errorf("receiver %q: email config with no destination", r.Name))
			}

			for _, body := range []string{ec.HTML, ec.Text} {
				if body == "" {
					continue
				}

				if _, err := template.New("body").Parse(body); err != nil {
					errs = append(errs, fmt.Errorf("receiver %q: body template: %s", r.Name, err))
				}
			}
		}
	}

	errs = append(errs, validateRoute(c.Route, names)...)

	return errs
}

func validateRoute(r Route, receivers map[string]bool) []error {
	var errs []error

	if r.Receiver == "" {
		errs = append(errs, fmt.Errorf("route with empty receiver"))
	} else if !receivers[r.Receiver] {
		errs = append(errs, fmt.Errorf("route references undeclared receiver %q", r.Receiver))
	}

	for _, child := range r.Routes {
		errs = append(errs, validateRoute(child, receivers)...)
	}

	return errs
}
