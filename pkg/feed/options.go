package feed

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultOpenTimeout      = 3 * time.Second
	DefaultHeartbeatTimeout = 75 * time.Second
)

type options struct {
	policy           Policy
	openTimeout      time.Duration
	heartbeatTimeout time.Duration
	fallback         Method
	clock            clockwork.Clock
	log              *slog.Logger
	transports       []Transport
	httpClient       *http.Client
	dialer           *websocket.Dialer
	pollInterval     time.Duration
}

func defaultOptions() options {
	return options{
		policy:           DefaultPolicy(),
		openTimeout:      DefaultOpenTimeout,
		heartbeatTimeout: DefaultHeartbeatTimeout,
		fallback:         MethodWebSocket,
		clock:            clockwork.NewRealClock(),
		pollInterval:     DefaultPollInterval,
	}
}

// Option configures a Manager or a Client.
type Option func(*options)

func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithOpenTimeout bounds every transport open.
func WithOpenTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.openTimeout = d
		}
	}
}

// WithHeartbeatTimeout sets how long a session may stay silent before it is
// treated as dropped.
func WithHeartbeatTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.heartbeatTimeout = d
		}
	}
}

// WithFallback selects the transport used once every transport failed for
// the configured number of cycles.
func WithFallback(m Method) Option {
	return func(o *options) { o.fallback = m }
}

func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTransports replaces the transports a Client builds from its Config.
// Order is preference order.
func WithTransports(ts ...Transport) Option {
	return func(o *options) { o.transports = ts }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}
