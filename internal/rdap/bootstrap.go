// Package rdap implements the registration-data lookup side of the probe
// engine: a resolver that queries a public RDAP aggregator with bounded
// retries and falls back to TLD-authoritative servers discovered through
// the IANA bootstrap registry.
package rdap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/domainwatch/domainwatch/internal/resilience"
	"github.com/domainwatch/domainwatch/internal/telemetry"
)

const (
	// DefaultBootstrapURL is the IANA bootstrap registry for the DNS space.
	DefaultBootstrapURL = "https://data.iana.org/rdap/dns.json"

	// DefaultBootstrapTTL is how long a fetched registry stays fresh.
	DefaultBootstrapTTL = 12 * time.Hour

	// bootstrapTimeout bounds the registry document fetch. Shorter than the
	// per-lookup timeout: the registry is an auxiliary source and must not
	// dominate a lookup's latency budget.
	bootstrapTimeout = 5 * time.Second
)

// BootstrapConfig holds configuration for the bootstrap registry cache.
type BootstrapConfig struct {
	// HTTPClient fetches the registry document (optional).
	HTTPClient HTTPDoer

	// URL is the registry document location (optional, defaults to IANA).
	URL string

	// TTL is the cache freshness window (optional, defaults to 12h).
	TTL time.Duration

	// Logger for cache operations.
	Logger zerolog.Logger

	// Metrics records registry fetch and cache telemetry (optional).
	Metrics *telemetry.UpstreamMetrics

	// Now is the clock used for freshness checks. Defaults to time.Now.
	Now func() time.Time
}

// Bootstrap is a process-wide cache of the IANA bootstrap registry: which
// RDAP servers are authoritative for which TLD. It refreshes itself lazily
// on access once the TTL elapses and serves the previous copy when a
// refresh fails. Redundant refreshes from concurrent callers are tolerated;
// the last writer's map wins.
type Bootstrap struct {
	client  HTTPDoer
	url     string
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *telemetry.UpstreamMetrics
	now     func() time.Time
	breaker *gobreaker.CircuitBreaker[map[string][]string]

	mu        sync.RWMutex
	services  map[string][]string
	fetchedAt time.Time
}

// NewBootstrap creates a new bootstrap registry cache.
func NewBootstrap(cfg BootstrapConfig) *Bootstrap {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	u := cfg.URL
	if u == "" {
		u = DefaultBootstrapURL
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultBootstrapTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	// The breaker keeps a dead registry endpoint from being re-fetched on
	// every lookup; while it is open the stale copy keeps being served.
	breaker := resilience.NewCircuitBreaker[map[string][]string](
		resilience.DefaultCircuitBreakerConfig("rdap-bootstrap"))

	return &Bootstrap{
		client:  client,
		url:     u,
		ttl:     ttl,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     now,
		breaker: breaker,
	}
}

// ServersFor returns the ordered RDAP base URLs serving tld, refreshing the
// registry first when the cached copy is missing or older than the TTL.
// It never fails: a fetch error degrades to whatever was cached before,
// possibly nothing.
func (b *Bootstrap) ServersFor(ctx context.Context, tld string) []string {
	if b.stale() {
		b.metrics.RecordCacheMiss(upstreamBootstrap)
		b.refresh(ctx)
	} else {
		b.metrics.RecordCacheHit(upstreamBootstrap)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.services[strings.ToLower(tld)]
}

func (b *Bootstrap) stale() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.services == nil || b.now().Sub(b.fetchedAt) > b.ttl
}

// refresh fetches and replaces the registry wholesale. On failure the
// previous copy (possibly empty) is left untouched; the next request will
// try again unless the breaker is open.
func (b *Bootstrap) refresh(ctx context.Context) {
	services, err := b.breaker.Execute(func() (map[string][]string, error) {
		return b.fetch(ctx)
	})
	if err != nil {
		b.logger.Warn().Err(err).Str("url", b.url).Msg("bootstrap registry refresh failed, serving stale copy")
		return
	}

	b.mu.Lock()
	b.services = services
	b.fetchedAt = b.now()
	b.mu.Unlock()

	b.logger.Debug().Int("tlds", len(services)).Msg("bootstrap registry refreshed")
}

func (b *Bootstrap) fetch(ctx context.Context) (map[string][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating bootstrap request: %w", err)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	b.metrics.RecordRequest(upstreamBootstrap, "fetch-registry", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("fetching bootstrap registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bootstrap registry returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading bootstrap registry: %w", err)
	}

	// The registry pairs lists of TLDs with lists of server base URLs:
	// {"services": [[["com", "net"], ["https://rdap.example/"]], ...]}
	var doc struct {
		Services [][][]string `json:"services"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding bootstrap registry: %w", err)
	}

	services := make(map[string][]string)
	for _, svc := range doc.Services {
		if len(svc) < 2 {
			continue
		}
		tlds, servers := svc[0], svc[1]
		for _, tld := range tlds {
			services[strings.ToLower(tld)] = servers
		}
	}

	return services, nil
}

// Stats describes the cache for operational reporting.
type Stats struct {
	TLDs         int
	FetchedAt    time.Time
	BreakerState gobreaker.State
}

// Stats returns a snapshot of the cache state.
func (b *Bootstrap) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		TLDs:         len(b.services),
		FetchedAt:    b.fetchedAt,
		BreakerState: b.breaker.State(),
	}
}
