package garmin

import (
	"errors"
	"fmt"
)

// ErrAuthRequired indicates there is no valid session with Garmin Connect.
// The sync run halts on this - re-authentication is the caller's responsibility.
var ErrAuthRequired = errors.New("garmin: authentication required")

// ProviderError wraps transient remote failures (network, rate limit,
// malformed response) with the endpoint that produced them.
type ProviderError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return fmt.Sprintf("garmin provider error on %s: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying cause
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsAuthRequired reports whether err indicates an invalid or expired session
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}
