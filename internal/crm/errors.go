package crm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials means no credential tier produced a usable
	// username/password pair.
	ErrMissingCredentials = errors.New("crm: credentials not configured")

	// ErrAuthFailed means the CRM rejected the login. The session stays
	// disconnected and the next sync attempt retries lazily.
	ErrAuthFailed = errors.New("crm: authentication failed")

	// ErrNotConnected means an API call was attempted without a session.
	ErrNotConnected = errors.New("crm: not connected")
)

// RemoteError is a failure reported by the CRM after a session was
// established: a non-2xx response or an unparseable body. It is never
// converted into a simulated success.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("crm: %s failed with HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("crm: %s failed with HTTP %d", e.Op, e.StatusCode)
}
