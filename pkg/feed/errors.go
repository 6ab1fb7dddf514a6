package feed

import (
	"errors"
	"fmt"
)

var (
	ErrNilCallback      = errors.New("feed: nil callback")
	ErrNoTransports     = errors.New("feed: no transports configured")
	ErrInvalidPolicy    = errors.New("feed: invalid reconnect policy")
	ErrUnknownMethod    = errors.New("feed: unknown transport method")
	ErrExhaustedRetries = errors.New("feed: every transport failed; committing to fallback")
	ErrOpenTimeout      = errors.New("feed: transport open timed out")
	ErrHeartbeatTimeout = errors.New("feed: no frame within heartbeat timeout")
	ErrUnexpectedStatus = errors.New("feed: unexpected response status")
	ErrUnexpectedType   = errors.New("feed: unexpected content type")
	ErrInvalidBaseURL   = errors.New("feed: invalid base url")
	ErrSessionClosed    = errors.New("feed: session closed")
)

// TransportError reports that a transport failed to open or dropped mid-stream.
// It is recovered by the manager and only surfaces as a status change.
type TransportError struct {
	Method Method
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("feed: transport %s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CallbackError wraps an error returned, or a panic raised, by a subscriber.
type CallbackError struct {
	SubscriptionID string
	Err            error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("feed: subscriber %s: %v", e.SubscriptionID, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }
