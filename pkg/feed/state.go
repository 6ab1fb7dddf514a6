package feed

import "time"

// State is the connection state of a Manager.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateBackoff
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Status is delivered to status observers on every state transition.
type Status struct {
	State   State
	Method  Method
	Attempt int
	// Err is the failure that caused a transition into Backoff, if any.
	Err error
	At  time.Time
}

// Connected reports whether the status represents an open session.
func (s Status) Connected() bool {
	return s.State == StateConnected
}

// Attempt describes the transport attempt in flight.
type Attempt struct {
	Method    Method
	Number    int
	StartedAt time.Time
}
