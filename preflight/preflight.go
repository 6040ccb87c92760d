// Package preflight verifies a running deployment from the outside: each
// exporter's pull endpoint must answer with parseable text exposition
// format, and the coordination service must hold the expected broker
// registrations. It exercises the same interfaces the collector and the
// brokers use, without owning any of their semantics.
package preflight

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"

	"github.com/imroyan/KafkaClusterSetup/zkcheck"
)

// DefaultTimeout bounds a single target probe.
const DefaultTimeout = 5 * time.Second

// Result is the outcome of probing one scrape target.
type Result struct {
	Job      string
	Target   string
	Families int
	Err      error
}

// Config holds Prober initialization parameters.
type Config struct {
	Timeout time.Duration
	Client  *http.Client
	Logger  zerolog.Logger
}

// Prober probes exporter pull endpoints.
type Prober struct {
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// NewProber takes a *Config and returns a *Prober, populating defaults for
// unset fields.
func NewProber(c *Config) *Prober {
	p := &Prober{
		timeout: c.Timeout,
		client:  c.Client,
		log:     c.Logger,
	}

	if p.timeout == 0 {
		p.timeout = DefaultTimeout
	}

	if p.client == nil {
		p.client = &http.Client{Timeout: p.timeout}
	}

	return p
}

// ScrapeTarget issues one GET /metrics pull against a host:port target and
// parses the response body as text exposition format. A reachable endpoint
// serving a malformed exposition is a failure; reachability alone isn't
// what the collector needs.
func (p *Prober) ScrapeTarget(ctx context.Context, job, target string) Result {
	r := Result{Job: job, Target: target}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/metrics", target), nil)
	if err != nil {
		r.Err = err
		return r
	}

	resp, err := p.client.Do(req)
	if err != nil {
		r.Err = err
		return r
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		return r
	}

	var parser expfmt.TextParser

	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		r.Err = fmt.Errorf("malformed exposition: %s", err)
		return r
	}

	r.Families = len(families)

	return r
}

// ScrapeAll probes every target of every job, jobs in name order. The
// targets map matches promcfg's Config.Targets output.
func (p *Prober) ScrapeAll(ctx context.Context, targets map[string][]string) []Result {
	var jobs []string
	for job := range targets {
		jobs = append(jobs, job)
	}
	sort.Strings(jobs)

	var results []Result
	for _, job := range jobs {
		for _, target := range targets[job] {
			r := p.ScrapeTarget(ctx, job, target)

			evt := p.log.Info()
			if r.Err != nil {
				evt = p.log.Error().Err(r.Err)
			}
			evt.Str("job", job).Str("target", target).Int("families", r.Families).
				Msg("scrape probe")

			results = append(results, r)
		}
	}

	return results
}

// Failed filters results down to failures.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}

	return failed
}

// CheckBrokers verifies that every expected broker id is registered with
// the coordination service.
func CheckBrokers(c zkcheck.Client, expected []int) error {
	registered, err := zkcheck.RegisteredBrokerIDs(c)
	if err != nil {
		return err
	}

	if missing := zkcheck.MissingBrokers(registered, expected); len(missing) > 0 {
		return fmt.Errorf("brokers not registered: %v", missing)
	}

	return nil
}
