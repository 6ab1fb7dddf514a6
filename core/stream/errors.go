package stream

import "errors"

var (
	// ErrInvalidChannel is returned for malformed channel names.
	ErrInvalidChannel = errors.New("invalid channel name")

	// ErrUnknownKind is returned when a wire frame carries an unknown event kind.
	ErrUnknownKind = errors.New("unknown event kind")
)
