// Package whois normalizes raw RDAP payloads into registration results:
// expiration/registration/update timestamps, registrar identity, and a
// days-to-expiration figure with a derived health status.
package whois

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/domainwatch/domainwatch/internal/health"
	"github.com/domainwatch/domainwatch/internal/rdap"
)

// expireWarningDays is the window inside which an upcoming expiration is
// reported as a warning.
const expireWarningDays = 30

// Event action aliases, matched as case-insensitive substrings. RDAP
// servers do not agree on exact action names.
var (
	expirationAliases   = []string{"expiration", "expiry"}
	registrationAliases = []string{"registration", "registered"}
	updateAliases       = []string{"last changed", "last update", "last updated", "updated"}
)

// Date layouts actually seen in the wild; RDAP mandates RFC3339 but
// registries improvise.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

// payload is a deliberately partial decoding of an RDAP domain object.
// Missing and extra fields are tolerated; only what the normalizer reads
// is declared.
type payload struct {
	Events    []event  `json:"events"`
	Entities  []entity `json:"entities"`
	Registrar any      `json:"registrar"`
	Name      any      `json:"registrarName"`
}

type event struct {
	Action string `json:"eventAction"`
	Date   string `json:"eventDate"`
}

type entity struct {
	Roles      []string `json:"roles"`
	VCardArray []any    `json:"vcardArray"`
}

// NormalizerConfig holds configuration for the normalizer.
type NormalizerConfig struct {
	// Logger for normalization diagnostics.
	Logger zerolog.Logger

	// Now is the clock used for days-to-expiration. Defaults to time.Now.
	Now func() time.Time
}

// Normalizer turns raw RDAP responses into RegistrationResults. It never
// fails: malformed input degrades to a warning result.
type Normalizer struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewNormalizer creates a new normalizer.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Normalizer{logger: cfg.Logger, now: now}
}

// Normalize extracts registration data from resp and derives the status.
func (n *Normalizer) Normalize(resp *rdap.Response) health.RegistrationResult {
	if resp == nil || len(resp.Body) == 0 {
		return health.RegistrationResult{
			Status:  health.StatusWarning,
			Message: "Unable to parse WHOIS data",
		}
	}

	var p payload
	if err := json.Unmarshal(resp.Body, &p); err != nil {
		n.logger.Debug().Err(err).Msg("RDAP body is not valid JSON")
		return health.RegistrationResult{
			Status:  health.StatusWarning,
			Message: "Unable to parse WHOIS data",
		}
	}

	if !resp.Success() {
		return health.RegistrationResult{
			Status:  health.StatusWarning,
			Message: "WHOIS lookup failed: " + resp.StatusText(),
		}
	}

	result := health.RegistrationResult{
		ExpirationDate: n.eventDate(p.Events, expirationAliases),
		CreatedDate:    n.eventDate(p.Events, registrationAliases),
		UpdatedDate:    n.eventDate(p.Events, updateAliases),
		Registrar:      registrarName(p),
	}

	switch {
	case result.ExpirationDate == nil:
		result.Status = health.StatusWarning
		result.Message = "Expiration date unavailable"

	default:
		days := daysUntil(n.now(), *result.ExpirationDate)
		result.DaysToExpire = &days
		switch {
		case days < 0:
			result.Status = health.StatusError
			result.Message = "Domain appears expired"
		case days <= expireWarningDays:
			result.Status = health.StatusWarning
			result.Message = expiresMessage(days)
		default:
			result.Status = health.StatusHealthy
		}
	}

	return result
}

// eventDate returns the parsed date of the first event whose action matches
// one of the aliases, or nil when no event matches or its date is unusable.
func (n *Normalizer) eventDate(events []event, aliases []string) *time.Time {
	for _, ev := range events {
		action := strings.ToLower(ev.Action)
		for _, alias := range aliases {
			if strings.Contains(action, alias) {
				return n.parseDate(ev)
			}
		}
	}
	return nil
}

func (n *Normalizer) parseDate(ev event) *time.Time {
	value := strings.TrimSpace(ev.Date)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	// The field is dropped rather than failing the whole lookup, but leave
	// a trace so registry quirks are not invisible.
	n.logger.Debug().
		Str("event_action", ev.Action).
		Str("event_date", ev.Date).
		Msg("dropping unparsable RDAP event date")
	return nil
}

// daysUntil counts whole calendar days from now until t, negative when t
// is in the past.
func daysUntil(now, t time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}

func expiresMessage(days int) string {
	if days == 1 {
		return "Expires in 1 day"
	}
	return fmt.Sprintf("Expires in %d days", days)
}

// registrarName digs the registrar identity out of the payload: first the
// vCard "fn" of an entity holding the registrar role, then the loose
// top-level fields some aggregators add.
func registrarName(p payload) string {
	for _, ent := range p.Entities {
		if !hasRole(ent.Roles, "registrar") {
			continue
		}
		if name := vcardFullName(ent.VCardArray); name != "" {
			return name
		}
	}
	if s, ok := p.Registrar.(string); ok && s != "" {
		return s
	}
	if s, ok := p.Name.(string); ok && s != "" {
		return s
	}
	return ""
}

func hasRole(roles []string, want string) bool {
	for _, role := range roles {
		if strings.EqualFold(role, want) {
			return true
		}
	}
	return false
}

// vcardFullName extracts the "fn" value from a jCard structure:
// ["vcard", [[name, params, type, value], ...]].
func vcardFullName(vcard []any) string {
	if len(vcard) < 2 {
		return ""
	}
	props, ok := vcard[1].([]any)
	if !ok {
		return ""
	}
	for _, p := range props {
		prop, ok := p.([]any)
		if !ok || len(prop) < 4 {
			continue
		}
		name, ok := prop[0].(string)
		if !ok || !strings.EqualFold(name, "fn") {
			continue
		}
		if value, ok := prop[3].(string); ok {
			return value
		}
	}
	return ""
}
