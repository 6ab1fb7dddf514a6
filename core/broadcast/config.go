package broadcast

import "time"

// Config holds registry tuning. Zero values fall back to DefaultConfig.
type Config struct {
	HeartbeatInterval        time.Duration `env:"BROADCAST_HEARTBEAT_INTERVAL" envDefault:"30s"`
	JanitorInterval          time.Duration `env:"BROADCAST_JANITOR_INTERVAL" envDefault:"1m"`
	ChannelTTL               time.Duration `env:"BROADCAST_CHANNEL_TTL" envDefault:"5m"`
	WriteTimeout             time.Duration `env:"BROADCAST_WRITE_TIMEOUT" envDefault:"5s"`
	SnapshotTimeout          time.Duration `env:"BROADCAST_SNAPSHOT_TIMEOUT" envDefault:"2s"`
	MaxConnectionsPerChannel int           `env:"BROADCAST_MAX_CONNECTIONS_PER_CHANNEL" envDefault:"0"`
	ConnectedMessage         string        `env:"BROADCAST_CONNECTED_MESSAGE" envDefault:"stream open"`
}

// DefaultConfig returns the values used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		JanitorInterval:   time.Minute,
		ChannelTTL:        5 * time.Minute,
		WriteTimeout:      5 * time.Second,
		SnapshotTimeout:   2 * time.Second,
		ConnectedMessage:  "stream open",
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.JanitorInterval <= 0 {
		c.JanitorInterval = def.JanitorInterval
	}
	if c.ChannelTTL <= 0 {
		c.ChannelTTL = def.ChannelTTL
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.SnapshotTimeout <= 0 {
		c.SnapshotTimeout = def.SnapshotTimeout
	}
	if c.MaxConnectionsPerChannel < 0 {
		c.MaxConnectionsPerChannel = 0
	}
	return c
}
