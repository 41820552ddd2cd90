package health

import "time"

// ReachabilityResult is the outcome of a single HTTP reachability probe.
// It is immutable once produced and is discarded after being folded into
// the aggregate Result.
type ReachabilityResult struct {
	Status     Status `json:"status"`
	Reachable  bool   `json:"reachable"`
	StatusCode *int   `json:"statusCode,omitempty"`
	URLTried   string `json:"urlTried"`
	LatencyMS  *int64 `json:"latencyMs,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RegistrationResult is the outcome of one RDAP lookup after normalization.
type RegistrationResult struct {
	Status         Status     `json:"status"`
	Registrar      string     `json:"registrar,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	CreatedDate    *time.Time `json:"createdDate,omitempty"`
	UpdatedDate    *time.Time `json:"updatedDate,omitempty"`
	DaysToExpire   *int       `json:"daysToExpire,omitempty"`
	Message        string     `json:"message,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// Result is the aggregate health snapshot for one domain. It is produced
// fresh on every invocation and has no persistent identity.
type Result struct {
	Domain    string             `json:"domain"`
	Status    Status             `json:"status"`
	CheckedAt time.Time          `json:"checkedAt"`
	HTTP      ReachabilityResult `json:"http"`
	Whois     RegistrationResult `json:"whois"`
}
