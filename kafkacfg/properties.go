// Package kafkacfg models broker configuration: server.properties-style
// key-value files, coordination-service connect strings, and cluster level
// consistency checks over a set of broker config fragments.
package kafkacfg

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedLine is returned when a properties line is neither a comment,
// a blank line, nor a key=value pair.
var ErrMalformedLine = errors.New("malformed properties line")

const (
	lineKindPair = iota
	lineKindComment
	lineKindBlank
)

// line is a single parsed properties file line. Comments and blank lines
// are retained so that a parse/render cycle preserves the file; these files
// are hand-maintained.
type line struct {
	kind  int
	key   string
	value string
	raw   string
}

// Properties is an ordered server.properties-style document.
type Properties struct {
	lines []line
	index map[string]int
}

// NewProperties returns an empty Properties.
func NewProperties() *Properties {
	return &Properties{index: map[string]int{}}
}

// ParseProperties parses a server.properties-style document. Duplicate keys
// take the last value, matching the broker's own behavior.
func ParseProperties(b []byte) (*Properties, error) {
	p := NewProperties()

	for n, raw := range strings.Split(string(b), "\n") {
		switch {
		case strings.TrimSpace(raw) == "":
			p.lines = append(p.lines, line{kind: lineKindBlank, raw: raw})
		case strings.HasPrefix(strings.TrimSpace(raw), "#"):
			p.lines = append(p.lines, line{kind: lineKindComment, raw: raw})
		default:
			k, v, ok := strings.Cut(raw, "=")
			if !ok {
				return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedLine, n+1, raw)
			}

			key := strings.TrimSpace(k)
			p.index[key] = len(p.lines)
			p.lines = append(p.lines, line{
				kind:  lineKindPair,
				key:   key,
				value: strings.TrimSpace(v),
				raw:   raw,
			})
		}
	}

	// A trailing newline parses as one empty trailing element; drop it so
	// Render doesn't accumulate blank lines across cycles.
	if n := len(p.lines); n > 0 && p.lines[n-1].kind == lineKindBlank && p.lines[n-1].raw == "" {
		p.lines = p.lines[:n-1]
	}

	return p, nil
}

// Get returns the value for key and whether it was present.
func (p *Properties) Get(key string) (string, bool) {
	i, ok := p.index[key]
	if !ok {
		return "", false
	}

	return p.lines[i].value, true
}

// Set updates key in place if present, otherwise appends it.
func (p *Properties) Set(key, value string) {
	if i, ok := p.index[key]; ok {
		p.lines[i].value = value
		p.lines[i].raw = fmt.Sprintf("%s=%s", key, value)
		return
	}

	p.index[key] = len(p.lines)
	p.lines = append(p.lines, line{
		kind:  lineKindPair,
		key:   key,
		value: value,
		raw:   fmt.Sprintf("%s=%s", key, value),
	})
}

// Unset removes key. Removing an absent key is a no-op.
func (p *Properties) Unset(key string) {
	i, ok := p.index[key]
	if !ok {
		return
	}

	p.lines = append(p.lines[:i], p.lines[i+1:]...)
	delete(p.index, key)

	// Reindex entries shifted by the removal.
	for k, j := range p.index {
		if j > i {
			p.index[k] = j - 1
		}
	}
}

// Keys returns all pair keys in file order.
func (p *Properties) Keys() []string {
	var ks []string
	for _, l := range p.lines {
		if l.kind == lineKindPair {
			ks = append(ks, l.key)
		}
	}

	return ks
}

// Render serializes the document, preserving comments, blank lines, and the
// original ordering.
func (p *Properties) Render() []byte {
	var buf bytes.Buffer

	for _, l := range p.lines {
		switch l.kind {
		case lineKindPair:
			fmt.Fprintf(&buf, "%s=%s\n", l.key, l.value)
		default:
			buf.WriteString(l.raw)
			buf.WriteString("\n")
		}
	}

	return buf.Bytes()
}
