package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrNoProviderConfigured is returned when no provider has an API key set
var ErrNoProviderConfigured = errors.New("no AI provider configured")

// ProviderError describes a failed completion attempt. Transient errors
// (rate limits, server errors, timeouts) are eligible for provider fallback;
// permanent errors (bad credentials, malformed requests) are not.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Transient  bool
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

// IsTransient reports whether a completion error is worth retrying on
// another provider
func IsTransient(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// transientStatus classifies HTTP status codes: rate limiting and server
// errors pass, client errors do not.
func transientStatus(code int) bool {
	return code == 429 || code >= 500
}
