package rdap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/domainwatch/domainwatch/internal/resilience"
	"github.com/domainwatch/domainwatch/internal/telemetry"
)

const (
	// DefaultAggregatorURL is the public RDAP aggregator tried first.
	DefaultAggregatorURL = "https://rdap.org"

	// DefaultTimeout bounds each individual RDAP attempt.
	DefaultTimeout = 7 * time.Second

	// defaultMaxRetries is how many times a rate-limited or timed-out
	// aggregator attempt is retried (3 attempts total).
	defaultMaxRetries = 2

	// defaultBaseDelay seeds the exponential backoff between retries.
	defaultBaseDelay = time.Second

	// defaultRetryAfter is assumed when a 429 carries no usable Retry-After.
	defaultRetryAfter = time.Second
)

// Upstream names used in telemetry attributes.
const (
	upstreamAggregator  = "rdap-aggregator"
	upstreamTLDRegistry = "tld-registry"
	upstreamBootstrap   = "iana-bootstrap"
)

// HTTPDoer is the minimal HTTP client interface the RDAP clients depend on.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is one RDAP response, success or not. The resolver hands back
// whichever response it last received so callers can still inspect status
// codes on failure.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// Success reports whether the response carries a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusText returns the status line, synthesizing one from the code when
// the transport did not provide it.
func (r *Response) StatusText() string {
	if r.Status != "" {
		return r.Status
	}
	return fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
}

// outcomeKind tags the result of a single RDAP attempt so retry
// eligibility is a decision over a value, not over error types.
type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRateLimited
	outcomeTimeout
	outcomeFailure
)

type attemptOutcome struct {
	kind       outcomeKind
	resp       *Response
	retryAfter time.Duration
	err        error
}

// ClientConfig holds configuration for the RDAP resolver.
type ClientConfig struct {
	// HTTPClient executes RDAP requests (optional).
	HTTPClient HTTPDoer

	// AggregatorURL is the primary lookup endpoint (optional).
	AggregatorURL string

	// Bootstrap supplies TLD-authoritative fallback servers (required).
	Bootstrap *Bootstrap

	// Timeout bounds each attempt (optional, defaults to 7s).
	Timeout time.Duration

	// MaxRetries is the number of aggregator retries (optional, defaults to 2).
	MaxRetries int

	// BaseDelay seeds the retry backoff (optional, defaults to 1s).
	BaseDelay time.Duration

	// Logger for resolver operations.
	Logger zerolog.Logger

	// Metrics records upstream request telemetry (optional).
	Metrics *telemetry.UpstreamMetrics

	// Sleep waits between retries (optional, defaults to a timer honoring ctx).
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client resolves domain registration data over RDAP.
type Client struct {
	client        HTTPDoer
	aggregatorURL string
	bootstrap     *Bootstrap
	timeout       time.Duration
	maxRetries    int
	baseDelay     time.Duration
	logger        zerolog.Logger
	metrics       *telemetry.UpstreamMetrics
	sleep         func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new RDAP resolver.
func NewClient(cfg ClientConfig) *Client {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	aggregatorURL := cfg.AggregatorURL
	if aggregatorURL == "" {
		aggregatorURL = DefaultAggregatorURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := cfg.BaseDelay
	if baseDelay == 0 {
		baseDelay = defaultBaseDelay
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Client{
		client:        client,
		aggregatorURL: aggregatorURL,
		bootstrap:     cfg.Bootstrap,
		timeout:       timeout,
		maxRetries:    maxRetries,
		baseDelay:     baseDelay,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		sleep:         sleep,
	}
}

// Resolve fetches the raw RDAP payload for domain. The aggregator is tried
// first with bounded retries; only on non-success does the resolver escalate
// to the TLD's authoritative servers from the bootstrap registry, one cheap
// attempt each. On total failure the last non-success response is returned
// so the caller can still extract its status, and only when no response was
// ever obtained does a final unguarded aggregator attempt decide the outcome.
func (c *Client) Resolve(ctx context.Context, domain string) (*Response, error) {
	endpoint := strings.TrimSuffix(c.aggregatorURL, "/") + "/domain/" + url.PathEscape(domain)
	schedule := resilience.NewRetrySchedule(c.baseDelay)

	var lastResp *Response

primary:
	for attempt := 0; ; attempt++ {
		out := c.attempt(ctx, upstreamAggregator, endpoint)
		if out.resp != nil {
			lastResp = out.resp
		}

		switch out.kind {
		case outcomeSuccess:
			return out.resp, nil

		case outcomeRateLimited:
			if attempt >= c.maxRetries {
				break primary
			}
			delay := schedule.NextBackOff() + out.retryAfter
			c.logger.Debug().
				Str("domain", domain).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("aggregator rate limited, backing off")
			if err := c.sleep(ctx, delay); err != nil {
				return lastResp, err
			}

		case outcomeTimeout:
			if attempt >= c.maxRetries {
				break primary
			}
			delay := schedule.NextBackOff()
			c.logger.Debug().
				Str("domain", domain).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("aggregator attempt timed out, backing off")
			if err := c.sleep(ctx, delay); err != nil {
				return lastResp, err
			}

		default:
			// Terminal for this phase: a non-retryable response or a
			// transport failure such as DNS or connection refusal.
			if out.err != nil {
				c.logger.Debug().Str("domain", domain).Err(out.err).Msg("aggregator attempt failed")
			}
			break primary
		}
	}

	// Aggregator did not succeed; escalate to the TLD's own servers with a
	// single attempt each to bound total latency.
	tld := domain[strings.LastIndex(domain, ".")+1:]
	for _, server := range c.bootstrap.ServersFor(ctx, tld) {
		fallbackURL := strings.TrimSuffix(server, "/") + "/domain/" + url.PathEscape(domain)
		out := c.attempt(ctx, upstreamTLDRegistry, fallbackURL)
		if out.kind == outcomeSuccess {
			c.logger.Debug().Str("domain", domain).Str("server", server).Msg("resolved via bootstrap fallback")
			return out.resp, nil
		}
		if out.resp != nil {
			lastResp = out.resp
		}
	}

	if lastResp != nil {
		return lastResp, nil
	}

	// Every attempt threw without producing a response. One last unguarded
	// try against the aggregator decides the outcome.
	return c.unguarded(ctx, endpoint)
}

// attempt performs one bounded GET and classifies the outcome.
func (c *Client) attempt(ctx context.Context, upstream, endpoint string) attemptOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return attemptOutcome{kind: outcomeFailure, err: err}
	}
	req.Header.Set("Accept", "application/rdap+json, application/json")

	start := time.Now()
	httpResp, err := c.client.Do(req)
	c.metrics.RecordRequest(upstream, "domain-lookup", time.Since(start), err)
	if err != nil {
		if resilience.IsTimeout(err) {
			return attemptOutcome{kind: outcomeTimeout, err: err}
		}
		return attemptOutcome{kind: outcomeFailure, err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return attemptOutcome{kind: outcomeFailure, err: fmt.Errorf("reading RDAP response: %w", err)}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Body:       body,
	}

	switch {
	case resp.Success():
		return attemptOutcome{kind: outcomeSuccess, resp: resp}
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return attemptOutcome{
			kind:       outcomeRateLimited,
			resp:       resp,
			retryAfter: parseRetryAfter(httpResp.Header.Get("Retry-After")),
		}
	default:
		return attemptOutcome{kind: outcomeFailure, resp: resp}
	}
}

// unguarded performs the last-resort aggregator attempt and propagates
// whatever happens, response or error.
func (c *Client) unguarded(ctx context.Context, endpoint string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rdap+json, application/json")

	start := time.Now()
	httpResp, err := c.client.Do(req)
	c.metrics.RecordRequest(upstreamAggregator, "domain-lookup", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading RDAP response: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Body:       body,
	}, nil
}

// parseRetryAfter interprets a Retry-After header as whole seconds,
// defaulting when absent or unparsable. HTTP-date values fall back to the
// default too; RDAP servers in the wild send seconds.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
