package sse

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID     = errors.New("invalid event id")
	ErrMissingData   = errors.New("update frame without data")
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// DecodeError describes a frame that could not be parsed.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("sse: decode %q: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
