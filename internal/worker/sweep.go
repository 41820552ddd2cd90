package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/domainwatch/domainwatch/internal/health"
)

// DomainChecker runs one health check for a domain.
type DomainChecker interface {
	Check(ctx context.Context, domain string) health.Result
}

// SweepJob periodically checks the health of a configured set of domains.
type SweepJob struct {
	config  SweepConfig
	checker DomainChecker
	logger  zerolog.Logger

	metrics *SweepMetrics
}

// SweepMetrics tracks sweep job statistics.
type SweepMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalSweeps   int64
	HealthyChecks int64
	WarningChecks int64
	ErrorChecks   int64

	// Timings
	LastSweepAt       time.Time
	LastSweepDuration time.Duration
	TotalDuration     time.Duration
}

// SweepJobConfig holds configuration for creating a SweepJob.
type SweepJobConfig struct {
	Config  SweepConfig
	Checker DomainChecker
	Logger  zerolog.Logger
}

// NewSweepJob creates a new sweep job processor.
func NewSweepJob(cfg SweepJobConfig) *SweepJob {
	return &SweepJob{
		config:  cfg.Config.normalize(),
		checker: cfg.Checker,
		logger:  cfg.Logger,
		metrics: &SweepMetrics{},
	}
}

// SweepResult contains the outcome of one sweep over all configured domains.
type SweepResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalDomains int
	Healthy      int
	Warning      int
	Error        int
	Results      []health.Result
}

// Run executes one sweep over all configured domains. Checks run on a small
// worker pool so a slow registry does not serialize the whole sweep.
func (j *SweepJob) Run(ctx context.Context) *SweepResult {
	startTime := time.Now()
	result := &SweepResult{
		StartTime:    startTime,
		TotalDomains: len(j.config.Domains),
	}

	j.logger.Info().
		Int("total_domains", result.TotalDomains).
		Int("concurrency", j.config.Concurrency).
		Msg("starting domain sweep")

	domainsChan := make(chan string, len(j.config.Domains))
	resultsChan := make(chan health.Result, len(j.config.Domains))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.sweepWorker(ctx, domainsChan, resultsChan)
		}()
	}

	for _, d := range j.config.Domains {
		domainsChan <- d
	}
	close(domainsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for res := range resultsChan {
		switch res.Status {
		case health.StatusHealthy:
			result.Healthy++
		case health.StatusWarning:
			result.Warning++
		case health.StatusError:
			result.Error++
		}
		result.Results = append(result.Results, res)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("healthy", result.Healthy).
		Int("warning", result.Warning).
		Int("error", result.Error).
		Msg("domain sweep completed")

	return result
}

func (j *SweepJob) sweepWorker(ctx context.Context, domains <-chan string, results chan<- health.Result) {
	for domain := range domains {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.checkDomain(ctx, domain)
		}
	}
}

func (j *SweepJob) checkDomain(ctx context.Context, domain string) health.Result {
	checkCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	res := j.checker.Check(checkCtx, domain)

	if res.Status != health.StatusHealthy {
		j.logger.Warn().
			Str("domain", domain).
			Str("status", string(res.Status)).
			Str("http_error", res.HTTP.Error).
			Str("whois_message", res.Whois.Message).
			Msg("domain is not healthy")
	}

	return res
}

func (j *SweepJob) updateMetrics(result *SweepResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalSweeps++
	j.metrics.HealthyChecks += int64(result.Healthy)
	j.metrics.WarningChecks += int64(result.Warning)
	j.metrics.ErrorChecks += int64(result.Error)
	j.metrics.LastSweepAt = result.EndTime
	j.metrics.LastSweepDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *SweepJob) GetMetrics() SweepMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return SweepMetrics{
		TotalSweeps:       j.metrics.TotalSweeps,
		HealthyChecks:     j.metrics.HealthyChecks,
		WarningChecks:     j.metrics.WarningChecks,
		ErrorChecks:       j.metrics.ErrorChecks,
		LastSweepAt:       j.metrics.LastSweepAt,
		LastSweepDuration: j.metrics.LastSweepDuration,
		TotalDuration:     j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *SweepJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_sweeps":        m.TotalSweeps,
		"healthy_checks":      m.HealthyChecks,
		"warning_checks":      m.WarningChecks,
		"error_checks":        m.ErrorChecks,
		"last_sweep_at":       m.LastSweepAt,
		"last_sweep_duration": m.LastSweepDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}
