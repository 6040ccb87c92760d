// Package compose models the minimal slice of the compose file format this
// toolkit emits and lints: services with images, ports, environment,
// volumes, and start-order hints, plus named volumes. Orchestration
// semantics belong to the orchestrator; depends_on in particular orders
// container start only and says nothing about application readiness, which
// is why the critical broker/coordination-service edge is gated by waitfor
// instead.
package compose

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// Project is a compose document.
type Project struct {
	Services map[string]*Service `yaml:"services"`
	Volumes  map[string]*Volume  `yaml:"volumes,omitempty"`
}

// Service is one deployed process.
type Service struct {
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name,omitempty"`
	Entrypoint    []string          `yaml:"entrypoint,omitempty"`
	Command       []string          `yaml:"command,omitempty"`
	Environment   map[string]string `yaml:"environment,omitempty"`
	Ports         []string          `yaml:"ports,omitempty"`
	Volumes       []string          `yaml:"volumes,omitempty"`
	DependsOn     []string          `yaml:"depends_on,omitempty"`
	Restart       string            `yaml:"restart,omitempty"`
}

// Volume is a durable named storage area. Creation and persistence are
// delegated entirely to the orchestrator.
type Volume struct{}

// Parse parses a compose document, rejecting unknown fields.
func Parse(b []byte) (*Project, error) {
	var p Project

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&p); err != nil {
		return nil, err
	}

	return &p, nil
}

// Render serializes the project.
func (p *Project) Render() ([]byte, error) {
	return yaml.Marshal(p)
}
