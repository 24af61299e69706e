package upstream

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned before any network call when no API
// credential is configured. It is never retried.
var ErrNotConfigured = errors.New("upstream: api key not configured")

// TransportError wraps a network-level failure talking to the upstream.
// Retry policy belongs to the caller.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError carries the upstream-supplied failure detail: either a
// non-2xx transport status or the errors array of a 2xx GraphQL envelope.
type ProtocolError struct {
	Status   int
	Messages []string
}

func (e *ProtocolError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("upstream: %s", strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("upstream: unexpected status %d", e.Status)
}
