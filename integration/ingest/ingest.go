// Package ingest relays upstream spin results from Redis pub/sub into the
// broadcast service.
//
// The game engine publishes every result on roulette:results:<table>. The
// relay subscribes to the pattern, maps the suffix to a feed channel and
// publishes the message body unchanged as the event payload.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/spinstream/core/logger"
	"github.com/dmitrymomot/spinstream/core/stream"
)

var (
	ErrNilClient          = errors.New("ingest: nil redis client")
	ErrNilPublisher       = errors.New("ingest: nil publisher")
	ErrInvalidPattern     = errors.New("ingest: pattern must end with '*'")
	ErrUnroutable         = errors.New("ingest: message channel does not match pattern")
	ErrSubscriptionClosed = errors.New("ingest: subscription closed")
)

// Config holds relay settings.
type Config struct {
	Pattern string `env:"INGEST_PATTERN" envDefault:"roulette:results:*"`
}

// Publisher accepts results for fan-out. *broadcast.Service implements it.
type Publisher interface {
	Publish(ctx context.Context, channel, payload string) (uint64, error)
}

// Option configures a Relay.
type Option func(*Relay)

func WithLogger(log *slog.Logger) Option {
	return func(r *Relay) {
		if log != nil {
			r.log = log
		}
	}
}

// subscription is the part of *redis.PubSub read by the relay loop.
type subscription interface {
	Receive(ctx context.Context) (any, error)
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// Relay forwards pub/sub messages to a Publisher.
type Relay struct {
	subscribe func(ctx context.Context, pattern string) subscription
	pub       Publisher
	pattern   string
	prefix    string
	log       *slog.Logger
}

// New creates a relay for cfg.Pattern, which must be a prefix followed by a
// single trailing '*'.
func New(client redis.UniversalClient, pub Publisher, cfg Config, opts ...Option) (*Relay, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if cfg.Pattern == "" {
		cfg.Pattern = "roulette:results:*"
	}
	prefix, ok := strings.CutSuffix(cfg.Pattern, "*")
	if !ok || strings.ContainsAny(prefix, "*?[") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, cfg.Pattern)
	}

	r := &Relay{
		subscribe: func(ctx context.Context, pattern string) subscription {
			return client.PSubscribe(ctx, pattern)
		},
		pub:       pub,
		pattern:   cfg.Pattern,
		prefix:    prefix,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("ingest"))
	return r, nil
}

// Run subscribes to the pattern and relays messages until ctx is done.
func (r *Relay) Run(ctx context.Context) func() error {
	return func() error {
		sub := r.subscribe(ctx, r.pattern)
		defer sub.Close()

		if _, err := sub.Receive(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ingest: subscribe %q: %w", r.pattern, err)
		}
		r.log.InfoContext(ctx, "relay subscribed", slog.String("pattern", r.pattern))

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-msgs:
				if !ok {
					return ErrSubscriptionClosed
				}
				if err := r.Handle(ctx, msg.Channel, msg.Payload); err != nil {
					r.log.WarnContext(ctx, "result dropped", logger.Error(err), slog.String("redis_channel", msg.Channel))
				}
			}
		}
	}
}

// Handle publishes one upstream message. redisChannel must match the
// relay pattern and its suffix must be a valid feed channel name.
func (r *Relay) Handle(ctx context.Context, redisChannel, payload string) error {
	name, ok := strings.CutPrefix(redisChannel, r.prefix)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnroutable, redisChannel)
	}
	if err := stream.ValidateChannel(name); err != nil {
		return err
	}

	seq, err := r.pub.Publish(ctx, name, payload)
	if err != nil {
		return fmt.Errorf("publish to %q: %w", name, err)
	}
	r.log.DebugContext(ctx, "result relayed", logger.Channel(name), logger.Sequence(seq))
	return nil
}
