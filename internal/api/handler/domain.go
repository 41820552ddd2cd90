package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/domainwatch/domainwatch/internal/api/models"
	"github.com/domainwatch/domainwatch/internal/api/response"
	"github.com/domainwatch/domainwatch/internal/health"
)

// maxDomainLength is the maximum hostname length per RFC 1035.
const maxDomainLength = 253

// DomainHandler handles domain health check endpoints.
type DomainHandler struct {
	checker *health.Checker
	logger  zerolog.Logger
}

// NewDomainHandler creates a new DomainHandler.
func NewDomainHandler(checker *health.Checker, logger zerolog.Logger) *DomainHandler {
	return &DomainHandler{
		checker: checker,
		logger:  logger,
	}
}

// Health handles GET /v1/domains/{domain}/health.
// Runs a reachability probe and a registration lookup for the domain and
// returns the combined result.
func (h *DomainHandler) Health(w http.ResponseWriter, r *http.Request) {
	domain := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "domain")))

	if errs := validateDomain(domain); len(errs) > 0 {
		response.BadRequest(w, r, "invalid domain name", errs)
		return
	}

	result := h.checker.Check(r.Context(), domain)

	h.logger.Info().
		Str("domain", domain).
		Str("status", string(result.Status)).
		Msg("domain health check completed")

	response.JSON(w, r, http.StatusOK, result)
}

// validateDomain checks that the path parameter looks like a plausible
// hostname before any upstream traffic is spent on it.
func validateDomain(domain string) []models.FieldError {
	var errs []models.FieldError

	switch {
	case domain == "":
		errs = append(errs, models.FieldError{
			Field: "domain", Message: "is required", Code: "REQUIRED",
		})
	case len(domain) > maxDomainLength:
		errs = append(errs, models.FieldError{
			Field: "domain", Message: "exceeds maximum hostname length", Code: "TOO_LONG",
		})
	case !strings.Contains(domain, "."):
		errs = append(errs, models.FieldError{
			Field: "domain", Message: "must contain at least one dot", Code: "INVALID_HOSTNAME",
		})
	default:
		for _, label := range strings.Split(domain, ".") {
			if !validLabel(label) {
				errs = append(errs, models.FieldError{
					Field: "domain", Message: "must be a valid hostname", Code: "INVALID_HOSTNAME",
				})
				break
			}
		}
	}

	return errs
}

func validLabel(label string) bool {
	if label == "" || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}
