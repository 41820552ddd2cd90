// Package main provides the entrypoint for the DomainWatch sweep worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/domainwatch/domainwatch/internal/health"
	"github.com/domainwatch/domainwatch/internal/probe"
	"github.com/domainwatch/domainwatch/internal/rdap"
	"github.com/domainwatch/domainwatch/internal/whois"
	"github.com/domainwatch/domainwatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "domainwatch-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting DomainWatch worker")

	// Worker also exposes a health endpoint for the container platform.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	aggregatorURL := os.Getenv("RDAP_AGGREGATOR_URL")
	if aggregatorURL == "" {
		aggregatorURL = rdap.DefaultAggregatorURL
	}

	bootstrapURL := os.Getenv("RDAP_BOOTSTRAP_URL")
	if bootstrapURL == "" {
		bootstrapURL = rdap.DefaultBootstrapURL
	}

	// Build the health check engine.
	bootstrap := rdap.NewBootstrap(rdap.BootstrapConfig{
		URL:    bootstrapURL,
		Logger: log,
	})
	rdapClient := rdap.NewClient(rdap.ClientConfig{
		AggregatorURL: aggregatorURL,
		Bootstrap:     bootstrap,
		Logger:        log,
	})
	checker := health.NewChecker(health.CheckerConfig{
		Prober: probe.New(probe.Config{Logger: log}),
		Registration: whois.NewChecker(whois.CheckerConfig{
			Resolver: rdapClient,
			Logger:   log,
		}),
		Logger: log,
	})

	sweepCfg := worker.SweepConfigFromEnv()
	job := worker.NewSweepJob(worker.SweepJobConfig{
		Config:  sweepCfg,
		Checker: checker,
		Logger:  log,
	})

	if len(sweepCfg.Domains) == 0 {
		log.Warn().Msg("SWEEP_DOMAINS is empty, sweeps will be no-ops")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create HTTP server for health checks
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"version": Version,
		})
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(job.MetricsSnapshot())
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start health check server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Start sweep loop: one sweep at startup, then one per interval.
	go func() {
		log.Info().
			Int("domains", len(sweepCfg.Domains)).
			Dur("interval", sweepCfg.Interval).
			Msg("sweep loop started")

		_ = job.Run(ctx)

		ticker := time.NewTicker(sweepCfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("sweep loop cancelled")
				return
			case <-ticker.C:
				_ = job.Run(ctx)
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
