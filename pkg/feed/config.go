package feed

import (
	"fmt"
	"time"
)

// Config describes the producer endpoints and connection tuning of a Client.
type Config struct {
	// BaseURL of the producer, e.g. https://feed.example.com.
	BaseURL string `env:"FEED_BASE_URL" envDefault:"http://localhost:8080"`
	// ProxyURL serves the proxied stream. Empty means BaseURL.
	ProxyURL string `env:"FEED_PROXY_URL"`
	Channel  string `env:"FEED_CHANNEL" envDefault:"table-1"`

	OpenTimeout      time.Duration `env:"FEED_OPEN_TIMEOUT" envDefault:"3s"`
	HeartbeatTimeout time.Duration `env:"FEED_HEARTBEAT_TIMEOUT" envDefault:"75s"`
	PollInterval     time.Duration `env:"FEED_POLL_INTERVAL" envDefault:"2s"`

	BaseDelay time.Duration `env:"FEED_BACKOFF_BASE" envDefault:"1s"`
	Growth    float64       `env:"FEED_BACKOFF_GROWTH" envDefault:"1.5"`
	MaxDelay  time.Duration `env:"FEED_BACKOFF_MAX" envDefault:"10s"`
	Cycles    int           `env:"FEED_BACKOFF_CYCLES" envDefault:"2"`
	Fallback  string        `env:"FEED_FALLBACK" envDefault:"websocket"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	p := DefaultPolicy()
	return Config{
		BaseURL:          "http://localhost:8080",
		Channel:          "table-1",
		OpenTimeout:      DefaultOpenTimeout,
		HeartbeatTimeout: DefaultHeartbeatTimeout,
		PollInterval:     DefaultPollInterval,
		BaseDelay:        p.Base,
		Growth:           p.Growth,
		MaxDelay:         p.Max,
		Cycles:           p.Cycles,
		Fallback:         string(MethodWebSocket),
	}
}

// Policy builds the reconnect policy described by the config.
func (c Config) Policy() Policy {
	return Policy{Base: c.BaseDelay, Growth: c.Growth, Max: c.MaxDelay, Cycles: c.Cycles}
}

func (c Config) options() ([]Option, error) {
	fallback, err := ParseMethod(c.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	return []Option{
		WithPolicy(c.Policy()),
		WithOpenTimeout(c.OpenTimeout),
		WithHeartbeatTimeout(c.HeartbeatTimeout),
		WithPollInterval(c.PollInterval),
		WithFallback(fallback),
	}, nil
}
