package probe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kroma-labs/courier-go/httpclient"
)

// Result is the outcome of one endpoint probe.
type Result struct {
	URL       string
	Status    int
	BodyBytes int
	Redirects int
	Elapsed   time.Duration
	Err       error
}

// Prober drives the courier client against a fixed set of endpoints.
type Prober struct {
	client  *httpclient.Client
	targets []string
	log     zerolog.Logger
}

// New creates a Prober over the given client and targets.
func New(client *httpclient.Client, targets []string, log zerolog.Logger) *Prober {
	return &Prober{client: client, targets: targets, log: log}
}

// Run probes every target once and logs the outcomes.
func (p *Prober) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(p.targets))
	for _, target := range p.targets {
		results = append(results, p.probe(ctx, target))
	}
	return results
}

func (p *Prober) probe(ctx context.Context, target string) Result {
	start := time.Now()
	resp, err := p.client.Get(ctx, target,
		httpclient.WithHeader("user-agent", "courier-monitor/0.1"),
	)
	result := Result{URL: target, Elapsed: time.Since(start), Err: err}
	if err != nil {
		p.log.Error().Err(err).Str("url", target).
			Bool("timeout", httpclient.IsTimeout(err)).
			Msg("probe failed")
		return result
	}

	result.Status = resp.Status
	result.BodyBytes = len(resp.Body)
	result.Redirects = len(resp.Redirects)

	event := p.log.Info()
	if !resp.IsSuccess() {
		event = p.log.Warn()
	}
	event.Str("url", target).
		Int("status", resp.Status).
		Int("bytes", result.BodyBytes).
		Int("redirects", result.Redirects).
		Dur("elapsed", result.Elapsed).
		Msg("probe complete")
	return result
}
