package broadcast

import (
	"errors"
	"fmt"
)

var (
	ErrNilSink      = errors.New("broadcast: nil sink")
	ErrChannelFull  = errors.New("broadcast: channel connection limit reached")
	ErrSinkClosed   = errors.New("broadcast: sink closed")
	ErrNilRegistry  = errors.New("broadcast: nil registry")
	ErrWriteTimeout = errors.New("broadcast: write timed out")
)

// WriteError describes a failed write to one connection. The connection has
// already been detached when this error is observed.
type WriteError struct {
	ConnectionID string
	Channel      string
	Err          error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("broadcast: write to connection %s on %q: %v", e.ConnectionID, e.Channel, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
