// Package api provides the HTTP API for DomainWatch.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/domainwatch/domainwatch/internal/api/handler"
	"github.com/domainwatch/domainwatch/internal/api/middleware"
	"github.com/domainwatch/domainwatch/internal/api/models"
	"github.com/domainwatch/domainwatch/internal/api/response"
	"github.com/domainwatch/domainwatch/internal/health"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version       string
	BuildTime     string
	Logger        zerolog.Logger
	ServiceName   string
	Metrics       *middleware.Metrics
	Checker       *health.Checker
	Bootstrap     handler.BootstrapSource
	AggregatorURL string
	BootstrapURL  string
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "domainwatch-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)

	// Unknown routes and methods answer in Problem JSON like everything else
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.NotFound(w, req, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.Error(w, req, models.NewProblem(
			models.ProblemTypeValidation,
			"Method not allowed",
			http.StatusMethodNotAllowed,
			middleware.GetRequestID(req.Context()),
		))
	})

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Bootstrap, cfg.AggregatorURL, cfg.BootstrapURL)
	domainHandler := handler.NewDomainHandler(cfg.Checker, cfg.Logger)

	// Create rate limit middleware for different endpoint categories
	probeRateLimit := middleware.RateLimitByIP(middleware.ProbeRateLimit)       // 10 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		// Domain health checks fan out to external registries, so they get
		// a strict per-IP limit.
		r.Route("/domains", func(r chi.Router) {
			r.Use(probeRateLimit)
			r.Get("/{domain}/health", domainHandler.Health)
		})
	})

	return r
}
