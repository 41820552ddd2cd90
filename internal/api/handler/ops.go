// Package handler provides HTTP handlers for the DomainWatch API.
package handler

import (
	"net/http"
	"time"

	"github.com/domainwatch/domainwatch/internal/api/models"
	"github.com/domainwatch/domainwatch/internal/api/response"
	"github.com/domainwatch/domainwatch/internal/rdap"
)

// BootstrapSource reports the state of the RDAP bootstrap registry cache.
type BootstrapSource interface {
	Stats() rdap.Stats
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version       string
	buildTime     string
	bootstrap     BootstrapSource
	aggregatorURL string
	bootstrapURL  string
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, bootstrap BootstrapSource, aggregatorURL, bootstrapURL string) *OpsHandler {
	return &OpsHandler{
		version:       version,
		buildTime:     buildTime,
		bootstrap:     bootstrap,
		aggregatorURL: aggregatorURL,
		bootstrapURL:  bootstrapURL,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// The service is ready as soon as it can serve requests; the bootstrap cache
// warms lazily and a cold cache only degrades RDAP fallback, so it does not
// gate readiness.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - upstream and cache status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())

	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   now,
		Upstreams: []models.UpstreamStatus{
			{Upstream: "rdap-aggregator", URL: h.aggregatorURL},
			{Upstream: "iana-bootstrap", URL: h.bootstrapURL},
		},
	}

	if h.bootstrap != nil {
		stats := h.bootstrap.Stats()
		bs := models.BootstrapStatus{
			TLDs:    stats.TLDs,
			Breaker: stats.BreakerState.String(),
			Status:  models.HealthStatusOK,
		}
		if !stats.FetchedAt.IsZero() {
			fetched := models.Timestamp(stats.FetchedAt)
			bs.FetchedAt = &fetched
		} else {
			// Never fetched yet: RDAP fallback is degraded but primary lookups work.
			bs.Status = models.HealthStatusDegraded
			status.Status = models.HealthStatusDegraded
		}
		status.Bootstrap = bs
	}

	response.JSON(w, r, http.StatusOK, status)
}
