package promcfg

import (
	"fmt"
	"text/template"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

// RuleFile is a sequence of named rule groups.
type RuleFile struct {
	Groups []RuleGroup `yaml:"groups"`
}

// RuleGroup is a named set of alert rules evaluated together.
type RuleGroup struct {
	Name     string         `yaml:"name"`
	Interval model.Duration `yaml:"interval,omitempty"`
	Rules    []Rule         `yaml:"rules"`
}

// Rule is one alert rule: an expression over stored series, a pending
// duration after which a continuously-true expression transitions from
// pending to firing, and templated label/annotation sets.
type Rule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         model.Duration    `yaml:"for,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// ParseRuleFile parses a rule file, rejecting unknown fields.
func ParseRuleFile(b []byte) (*RuleFile, error) {
	var f RuleFile

	if err := unmarshalStrict(b, &f); err != nil {
		return nil, err
	}

	return &f, nil
}

// Render serializes the rule file. Durations render in their compact form
// ("5m"), so a parse/render cycle of a hand-written file is equivalent YAML.
func (f *RuleFile) Render() ([]byte, error) {
	return yaml.Marshal(f)
}

// Validate checks rule file constraints: unique non-empty group names,
// non-empty alert names and expressions, valid label names, and annotation
// and label values that parse under the collector's templating syntax.
func (f *RuleFile) Validate() []error {
	var errs []error

	groups := map[string]bool{}
	for _, g := range f.Groups {
		if g.Name == "" {
			errs = append(errs, fmt.Errorf("rule group with empty name"))
			continue
		}

		if groups[g.Name] {
			errs = append(errs, fmt.Errorf("duplicate rule group %q", g.Name))
		}
		groups[g.Name] = true

		for _, r := range g.Rules {
			errs = append(errs, r.validate(g.Name)...)
		}
	}

	return errs
}

func (r Rule) validate(group string) []error {
	var errs []error

	if r.Alert == "" {
		errs = append(errs, fmt.Errorf("group %q: rule with empty alert name", group))
		return errs
	}

	if r.Expr == "" {
		errs = append(errs, fmt.Errorf("group %q: rule %q has no expression", group, r.Alert))
	}

	for k := range r.Labels {
		if !model.LabelName(k).IsValid() {
			errs = append(errs, fmt.Errorf("group %q: rule %q: invalid label name %q", group, r.Alert, k))
		}
	}

	for k, v := range r.Annotations {
		if err := CheckTemplate(v); err != nil {
			errs = append(errs, fmt.Errorf("group %q: rule %q: annotation %q: %s", group, r.Alert, k, err))
		}
	}

	for _, v := range r.Labels {
		if err := CheckTemplate(v); err != nil {
			errs = append(errs, fmt.Errorf("group %q: rule %q: label template: %s", group, r.Alert, err))
		}
	}

	return errs
}

// tmplPreamble declares the variables the collector's template expansion
// provides, so references like $labels and $value parse.
const tmplPreamble = `{{- $labels := .Labels -}}{{- $value := .Value -}}{{- $externalLabels := .ExternalLabels -}}`

// CheckTemplate reports whether s parses under the collector's annotation
// templating syntax. Only syntax is checked; expansion happens inside the
// collector at evaluation time.
func CheckTemplate(s string) error {
	_, err := template.New("annotation").Parse(tmplPreamble + s)

	return err
}
