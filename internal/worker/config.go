// Package worker provides background job processing for DomainWatch.
package worker

import (
	"os"
	"strings"
	"time"
)

// SweepConfig holds configuration for the domain sweep job.
type SweepConfig struct {
	// Domains are the domain names to sweep.
	Domains []string

	// Concurrency is the number of concurrent health checks.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each domain check.
	// Default: 30 seconds
	Timeout time.Duration

	// Interval is the pause between sweep runs.
	// Default: 15 minutes
	Interval time.Duration
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Concurrency: 3,
		Timeout:     30 * time.Second,
		Interval:    15 * time.Minute,
	}
}

// SweepConfigFromEnv builds a sweep configuration from environment variables.
// SWEEP_DOMAINS is a comma-separated list of domain names; empty entries are
// dropped.
func SweepConfigFromEnv() SweepConfig {
	cfg := DefaultSweepConfig()

	for _, d := range strings.Split(os.Getenv("SWEEP_DOMAINS"), ",") {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			cfg.Domains = append(cfg.Domains, d)
		}
	}

	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		if interval, err := time.ParseDuration(v); err == nil && interval > 0 {
			cfg.Interval = interval
		}
	}

	return cfg
}

// normalize applies defaults to zero-value fields.
func (c SweepConfig) normalize() SweepConfig {
	def := DefaultSweepConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	return c
}
