// Package health defines the domain health model and the checker that
// aggregates reachability and registration probes into a single result.
package health

// Status represents the health of a domain or of one of its probes.
type Status string

const (
	// StatusHealthy means the probe found nothing wrong.
	StatusHealthy Status = "healthy"
	// StatusWarning means the probe completed but found something worth attention.
	StatusWarning Status = "warning"
	// StatusError means the probe failed or found a hard problem.
	StatusError Status = "error"
)

// severity orders statuses for combination: error > warning > healthy.
func (s Status) severity() int {
	switch s {
	case StatusError:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// Combine returns the highest-severity status of the given statuses.
// Combining nothing yields StatusHealthy.
func Combine(statuses ...Status) Status {
	combined := StatusHealthy
	for _, s := range statuses {
		if s.severity() > combined.severity() {
			combined = s
		}
	}
	return combined
}
