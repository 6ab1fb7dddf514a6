package streamapi

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/spinstream/core/health"
)

// DefaultMaxPayloadSize bounds the body accepted by the publish endpoint.
const DefaultMaxPayloadSize = 64 << 10

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger used for request and stream logs. Nil is ignored.
func WithLogger(log *slog.Logger) Option {
	return func(a *API) {
		if log != nil {
			a.log = log
		}
	}
}

// WithReadinessChecks adds dependency probes to /health/ready.
func WithReadinessChecks(checks ...health.Check) Option {
	return func(a *API) {
		a.checks = append(a.checks, checks...)
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *API) {
		a.metrics = h
	}
}

// WithMaxPayloadSize bounds publish request bodies; non-positive values keep the default.
func WithMaxPayloadSize(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxPayload = n
		}
	}
}

// WithCheckOrigin overrides the WebSocket origin check. By default every
// origin is accepted.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(a *API) {
		if fn != nil {
			a.upgrader.CheckOrigin = fn
		}
	}
}

// WithoutPublish disables the publish endpoint, for deployments where results
// only arrive through the ingestion relay.
func WithoutPublish() Option {
	return func(a *API) {
		a.publish = false
	}
}
