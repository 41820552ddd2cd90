// Package probe implements the HTTP reachability probe: a lightweight
// HEAD request over HTTPS with an HTTP fallback, classified into a
// health status.
package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/domainwatch/domainwatch/internal/health"
	"github.com/domainwatch/domainwatch/internal/resilience"
)

// DefaultTimeout bounds each probe attempt.
const DefaultTimeout = 7 * time.Second

// HTTPDoer is the minimal HTTP client interface the prober depends on.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for the prober.
type Config struct {
	// HTTPClient executes probe requests (optional).
	// It must not follow its own timeout; the prober bounds each attempt.
	HTTPClient HTTPDoer

	// Timeout bounds each individual attempt (optional, defaults to 7s).
	Timeout time.Duration

	// Logger for probe operations.
	Logger zerolog.Logger
}

// Prober checks whether a domain's web endpoint is reachable.
type Prober struct {
	client  HTTPDoer
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates a new reachability prober.
func New(cfg Config) *Prober {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		client:  client,
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

// Probe issues a header-only request to https://{domain}, falling back to
// http://{domain} when the secure attempt fails. It never returns an error;
// every failure mode is captured in the result. Any received status code
// counts as reachable, 4xx/5xx included.
func (p *Prober) Probe(ctx context.Context, domain string) health.ReachabilityResult {
	result, httpsErr := p.attempt(ctx, "https://"+domain)
	if httpsErr == nil {
		return result
	}

	result, httpErr := p.attempt(ctx, "http://"+domain)
	if httpErr == nil {
		p.logger.Debug().
			Str("domain", domain).
			Err(httpsErr).
			Msg("https probe failed, http fallback succeeded")
		return result
	}

	return health.ReachabilityResult{
		Status:    health.StatusError,
		Reachable: false,
		URLTried:  "http://" + domain,
		Error:     httpErr.Error(),
	}
}

func (p *Prober) attempt(ctx context.Context, url string) (health.ReachabilityResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return health.ReachabilityResult{}, err
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if resilience.IsTimeout(err) {
			p.logger.Debug().Str("url", url).Dur("timeout", p.timeout).Msg("probe attempt timed out")
		}
		return health.ReachabilityResult{}, err
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()
	statusCode := resp.StatusCode

	status := health.StatusHealthy
	if statusCode >= 400 && statusCode < 600 {
		status = health.StatusWarning
	}

	return health.ReachabilityResult{
		Status:     status,
		Reachable:  true,
		StatusCode: &statusCode,
		URLTried:   url,
		LatencyMS:  &latency,
	}, nil
}
