package resilience

import (
	"context"
	"errors"
	"net"
	"net/url"
)

// IsTimeout reports whether err means an upstream attempt ran out of time,
// as opposed to a connection refusal, DNS failure, or malformed response.
// Retry policies treat the two classes differently: timeouts are worth
// another attempt, terminal transport failures are not.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
