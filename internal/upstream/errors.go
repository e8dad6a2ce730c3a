// ABOUTME: Error types distinguishing unreachable upstreams from upstream-reported errors.
// ABOUTME: StatusError preserves the upstream response so it can be forwarded unmodified.

package upstream

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates the upstream could not be reached: connection
// failure, timeout, or an open circuit breaker. It is distinct from an
// upstream that responded with an error status.
var ErrUnavailable = errors.New("upstream unavailable")

// StatusError carries a non-success upstream response. Handlers forward
// the status and body to the caller without rewriting them.
type StatusError struct {
	Status      int
	ContentType string
	Body        []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}
