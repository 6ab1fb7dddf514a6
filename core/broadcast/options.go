package broadcast

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Option configures a Registry.
type Option func(*Registry)

// WithConfig replaces the registry configuration. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(r *Registry) {
		r.cfg = cfg.withDefaults()
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClock injects the clock driving timestamps and the background loops.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithSnapshotSource seeds the snapshot of freshly created channels, so the
// first viewer after a restart still receives the latest known result.
func WithSnapshotSource(src SnapshotSource) Option {
	return func(r *Registry) {
		r.source = src
	}
}

func WithHeartbeatInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.cfg.HeartbeatInterval = d
		}
	}
}

func WithChannelTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.cfg.ChannelTTL = d
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.cfg.WriteTimeout = d
		}
	}
}

// WithMaxConnectionsPerChannel caps viewers per channel. Zero means unlimited.
func WithMaxConnectionsPerChannel(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.cfg.MaxConnectionsPerChannel = n
		}
	}
}
