package server

import "time"

const (
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is zero: streams set their own per-write deadlines.
	DefaultWriteTimeout = 0

	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20 // 1 MB
)
