package compose

import (
	"fmt"
	"sort"
	"strings"
)

// Lint checks a project for composition mistakes that the orchestrator
// either silently tolerates or surfaces only at deploy time:
//   - depends_on references that don't resolve, or form a cycle
//   - a named volume bound to zero services or shared between several
//     (each volume belongs to exactly one component's data directory)
//   - two services publishing the same host port
//   - unpinned image tags
//
// All findings are returned.
func Lint(p *Project) []error {
	var errs []error

	names := make([]string, 0, len(p.Services))
	for name := range p.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	volumeUsers := map[string][]string{}
	hostPorts := map[string]string{}

	for _, name := range names {
		svc := p.Services[name]

		if tag := imageTag(svc.Image); tag == "" || tag == "latest" {
			errs = append(errs, fmt.Errorf("service %q: image %q is not pinned to a version", name, svc.Image))
		}

		for _, dep := range svc.DependsOn {
			if _, ok := p.Services[dep]; !ok {
				errs = append(errs, fmt.Errorf("service %q: depends_on %q does not exist", name, dep))
			}
		}

		for _, v := range svc.Volumes {
			src, _, ok := strings.Cut(v, ":")
			if !ok {
				errs = append(errs, fmt.Errorf("service %q: volume %q is not a source:target pair", name, v))
				continue
			}

			// Bind mounts are out of linting scope; only named volumes
			// carry the single-owner invariant.
			if strings.HasPrefix(src, "/") || strings.HasPrefix(src, ".") {
				continue
			}

			if _, ok := p.Volumes[src]; !ok {
				errs = append(errs, fmt.Errorf("service %q: named volume %q is not declared", name, src))
				continue
			}

			volumeUsers[src] = append(volumeUsers[src], name)
		}

		for _, port := range svc.Ports {
			host, _, ok := strings.Cut(port, ":")
			if !ok {
				continue
			}

			if prev, taken := hostPorts[host]; taken {
				errs = append(errs, fmt.Errorf("service %q: host port %s already published by %q", name, host, prev))
				continue
			}
			hostPorts[host] = name
		}
	}

	var volumes []string
	for v := range p.Volumes {
		volumes = append(volumes, v)
	}
	sort.Strings(volumes)

	for _, v := range volumes {
		switch users := volumeUsers[v]; len(users) {
		case 1:
		case 0:
			errs = append(errs, fmt.Errorf("volume %q is not bound to any service", v))
		default:
			errs = append(errs, fmt.Errorf("volume %q is bound to %d services: %s",
				v, len(users), strings.Join(users, ", ")))
		}
	}

	errs = append(errs, findCycles(p, names)...)

	return errs
}

// findCycles walks depends_on edges depth-first.
func findCycles(p *Project, names []string) []error {
	var errs []error

	const (
		unvisited = iota
		inStack
		done
	)

	state := map[string]int{}

	var visit func(name string, path []string)
	visit = func(name string, path []string) {
		switch state[name] {
		case done:
			return
		case inStack:
			errs = append(errs, fmt.Errorf("depends_on cycle: %s", strings.Join(append(path, name), " -> ")))
			return
		}

		state[name] = inStack
		svc, ok := p.Services[name]
		if ok {
			for _, dep := range svc.DependsOn {
				if _, exists := p.Services[dep]; exists {
					visit(dep, append(path, name))
				}
			}
		}
		state[name] = done
	}

	for _, name := range names {
		visit(name, nil)
	}

	return errs
}

func imageTag(image string) string {
	slash := strings.LastIndex(image, "/")
	colon := strings.LastIndex(image, ":")
	if colon < 0 || colon < slash {
		return ""
	}

	return image[colon+1:]
}
