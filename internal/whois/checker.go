package whois

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/domainwatch/domainwatch/internal/health"
	"github.com/domainwatch/domainwatch/internal/rdap"
)

// Resolver fetches a raw RDAP payload for a domain.
type Resolver interface {
	Resolve(ctx context.Context, domain string) (*rdap.Response, error)
}

// CheckerConfig holds configuration for the registration checker.
type CheckerConfig struct {
	// Resolver performs the RDAP lookup (required).
	Resolver Resolver

	// Normalizer turns raw payloads into results (optional).
	Normalizer *Normalizer

	// Logger for checker operations.
	Logger zerolog.Logger
}

// Checker composes the RDAP resolver with the normalizer, satisfying the
// health checker's registration interface.
type Checker struct {
	resolver   Resolver
	normalizer *Normalizer
	logger     zerolog.Logger
}

// NewChecker creates a new registration checker.
func NewChecker(cfg CheckerConfig) *Checker {
	normalizer := cfg.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer(NormalizerConfig{Logger: cfg.Logger})
	}
	return &Checker{
		resolver:   cfg.Resolver,
		normalizer: normalizer,
		logger:     cfg.Logger,
	}
}

// Check resolves and normalizes registration data for domain. A resolver
// hard failure, where no response was ever obtained, folds into an error
// result rather than propagating.
func (c *Checker) Check(ctx context.Context, domain string) health.RegistrationResult {
	resp, err := c.resolver.Resolve(ctx, domain)
	if err != nil {
		c.logger.Warn().Str("domain", domain).Err(err).Msg("RDAP resolution failed")
		return health.RegistrationResult{
			Status: health.StatusError,
			Error:  err.Error(),
		}
	}
	return c.normalizer.Normalize(resp)
}
