package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status    HealthStatus    `json:"status"`
	Time      Timestamp       `json:"time"`
	Bootstrap BootstrapStatus `json:"bootstrap"`
	Upstreams []UpstreamStatus `json:"upstreams"`
}

// BootstrapStatus reports the state of the RDAP bootstrap registry cache.
type BootstrapStatus struct {
	TLDs      int          `json:"tlds"`
	FetchedAt *Timestamp   `json:"fetchedAt,omitempty"`
	Breaker   string       `json:"breaker"`
	Status    HealthStatus `json:"status"`
}

// UpstreamStatus represents the configured state of an external upstream.
type UpstreamStatus struct {
	Upstream string  `json:"upstream"`
	URL      string  `json:"url"`
	Message  *string `json:"message,omitempty"`
}
