package health

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Prober checks whether a domain's web endpoint answers at all.
type Prober interface {
	Probe(ctx context.Context, domain string) ReachabilityResult
}

// RegistrationChecker looks up and normalizes a domain's registration data.
type RegistrationChecker interface {
	Check(ctx context.Context, domain string) RegistrationResult
}

// CheckerConfig holds configuration for the health checker.
type CheckerConfig struct {
	// Prober performs the HTTP reachability probe (required).
	Prober Prober

	// Registration performs the RDAP lookup and normalization (required).
	Registration RegistrationChecker

	// Logger for checker operations.
	Logger zerolog.Logger

	// Now is the clock used to stamp results. Defaults to time.Now.
	Now func() time.Time
}

// Checker runs both probes for a domain concurrently and merges their
// outcomes into one Result.
type Checker struct {
	prober       Prober
	registration RegistrationChecker
	logger       zerolog.Logger
	now          func() time.Time
}

// NewChecker creates a new health checker.
func NewChecker(cfg CheckerConfig) *Checker {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Checker{
		prober:       cfg.Prober,
		registration: cfg.Registration,
		logger:       cfg.Logger,
		now:          now,
	}
}

// Check produces a best-effort health snapshot for domain. The reachability
// probe and the registration lookup run concurrently and both always run to
// completion; neither short-circuits the other since they cover independent
// concerns. CheckedAt is stamped when both have finished.
func (c *Checker) Check(ctx context.Context, domain string) Result {
	var (
		httpResult  ReachabilityResult
		whoisResult RegistrationResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		httpResult = c.prober.Probe(gctx, domain)
		return nil
	})
	g.Go(func() error {
		whoisResult = c.registration.Check(gctx, domain)
		return nil
	})
	// Sub-checks fold every failure into their result, so this never errors.
	_ = g.Wait()

	result := Result{
		Domain:    domain,
		Status:    Combine(httpResult.Status, whoisResult.Status),
		CheckedAt: c.now(),
		HTTP:      httpResult,
		Whois:     whoisResult,
	}

	c.logger.Debug().
		Str("domain", domain).
		Str("status", string(result.Status)).
		Str("http_status", string(httpResult.Status)).
		Str("whois_status", string(whoisResult.Status)).
		Msg("domain health check completed")

	return result
}
