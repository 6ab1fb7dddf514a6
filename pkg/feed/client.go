package feed

import (
	"context"
	"io"
	"log/slog"

	"github.com/dmitrymomot/spinstream/core/stream"
)

// Client is the consumer entry point: a Manager feeding a Router.
// Unsubscribing the last subscriber leaves the connection open.
type Client struct {
	router  *Router
	manager *Manager
}

// NewClient builds transports for cfg in preference order: websocket, direct
// SSE, proxied SSE, polling. Options override config values.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfgOpts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	all := append(cfgOpts, opts...)

	o := defaultOptions()
	for _, opt := range all {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	transports := o.transports
	if len(transports) == 0 {
		transports = defaultTransports(cfg, o)
	}

	router := NewRouter(o.log)
	manager, err := NewManager(cfg.Channel, transports, func(ev stream.Event) { router.Dispatch(ev) }, all...)
	if err != nil {
		return nil, err
	}
	return &Client{router: router, manager: manager}, nil
}

func defaultTransports(cfg Config, o options) []Transport {
	proxy := cfg.ProxyURL
	if proxy == "" {
		proxy = cfg.BaseURL
	}
	return []Transport{
		NewWebSocketTransport(cfg.BaseURL, o.dialer),
		NewSSETransport(MethodSSEDirect, cfg.BaseURL, o.httpClient),
		NewSSETransport(MethodSSEProxied, proxy, o.httpClient),
		NewPollingTransport(cfg.BaseURL, o.httpClient, o.pollInterval, o.clock),
	}
}

// Connect starts connecting in the background. See Manager.Connect.
func (c *Client) Connect(ctx context.Context) error {
	return c.manager.Connect(ctx)
}

// Disconnect closes the connection and suppresses reconnection until
// Connect or Reconnect is called.
func (c *Client) Disconnect() {
	c.manager.Disconnect()
}

// Reconnect clears a manual disconnect and starts over from the preferred transport.
func (c *Client) Reconnect(ctx context.Context) error {
	return c.manager.Reconnect(ctx)
}

// Subscribe registers cb for channel or stream.Wildcard.
func (c *Client) Subscribe(channel string, cb Callback, opts ...SubscribeOption) (string, error) {
	return c.router.Subscribe(channel, cb, opts...)
}

func (c *Client) Unsubscribe(id string) bool {
	return c.router.Unsubscribe(id)
}

func (c *Client) IsConnected() bool {
	return c.manager.IsConnected()
}

func (c *Client) State() State {
	return c.manager.State()
}

// OnStatus registers a connectivity observer; see Manager.OnStatus.
func (c *Client) OnStatus(fn func(Status)) func() {
	return c.manager.OnStatus(fn)
}

// Close disconnects and drops every subscription.
func (c *Client) Close() {
	c.manager.Disconnect()
	c.router.Clear()
}

// Method returns the transport of the current or last attempt.
func (c *Client) Method() Method {
	return c.manager.Method()
}
