package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/spinstream/core/logger"
	"github.com/dmitrymomot/spinstream/core/sse"
	"github.com/dmitrymomot/spinstream/core/stream"
)

// SnapshotSource provides the latest known event of a channel from outside
// the process, typically the result history store.
type SnapshotSource interface {
	Latest(ctx context.Context, channel string) (stream.Event, bool, error)
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Channels    int `json:"channels"`
	Connections int `json:"connections"`
}

// Registry tracks open connections per channel and writes framed events to them.
type Registry struct {
	cfg     Config
	clock   clockwork.Clock
	log     *slog.Logger
	metrics *Metrics
	source  SnapshotSource

	mu       sync.RWMutex
	channels map[string]*channel
}

// NewRegistry creates a registry. Background heartbeats and eviction only run
// once Run is started.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		cfg:      DefaultConfig(),
		clock:    clockwork.NewRealClock(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		channels: make(map[string]*channel),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("broadcast"))
	return r
}

// Config returns the effective configuration.
func (r *Registry) Config() Config {
	return r.cfg
}

// Attach registers sink as a new connection on channel. The connected signal
// and the channel snapshot are written before Attach returns. If that first
// write fails the connection is detached and the error returned.
func (r *Registry) Attach(ctx context.Context, name string, sink Sink) (*Connection, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	if err := stream.ValidateChannel(name); err != nil {
		return nil, err
	}

	for {
		ch := r.getOrCreate(name)
		ch.mu.Lock()
		if ch.evicted {
			// Lost a race with the janitor; retry on a fresh channel.
			ch.mu.Unlock()
			continue
		}
		conn, err := r.attachLocked(ctx, ch, sink)
		ch.mu.Unlock()
		return conn, err
	}
}

func (r *Registry) attachLocked(ctx context.Context, ch *channel, sink Sink) (*Connection, error) {
	if limit := r.cfg.MaxConnectionsPerChannel; limit > 0 && len(ch.conns) >= limit {
		r.log.WarnContext(ctx, "connection rejected",
			logger.Channel(ch.name),
			logger.Count("max_connections", limit),
		)
		return nil, fmt.Errorf("%w: %d", ErrChannelFull, limit)
	}

	r.seedLocked(ctx, ch)

	now := r.clock.Now()
	conn := newConnection(ch.name, sink, now)
	ch.add(conn)
	ch.lastActivity = now
	r.metrics.connectionOpened()

	err := r.writeLocked(ctx, conn, sse.Encode(stream.Connected(ch.name, r.cfg.ConnectedMessage, now)))
	if err == nil && ch.last != nil {
		snap := *ch.last
		snap.Sequence = 0
		err = r.writeLocked(ctx, conn, sse.Encode(snap))
	}
	if err != nil {
		r.removeLocked(ch, conn)
		werr := &WriteError{ConnectionID: conn.ID, Channel: ch.name, Err: err}
		r.log.WarnContext(ctx, "initial write failed", logger.Error(werr))
		return nil, werr
	}

	r.log.DebugContext(ctx, "connection attached",
		logger.Channel(ch.name),
		logger.ConnectionID(conn.ID),
		logger.Count("connections", len(ch.conns)),
	)
	return conn, nil
}

// seedLocked loads the snapshot of a channel that has never seen an event.
func (r *Registry) seedLocked(ctx context.Context, ch *channel) {
	if ch.seeded {
		return
	}
	ch.seeded = true
	if r.source == nil || ch.last != nil {
		return
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.SnapshotTimeout)
	defer cancel()

	ev, ok, err := r.source.Latest(sctx, ch.name)
	if err != nil {
		r.log.WarnContext(ctx, "snapshot seed failed", logger.Channel(ch.name), logger.Error(err))
		return
	}
	if !ok {
		return
	}
	ev.Channel = ch.name
	ev.Kind = stream.KindUpdate
	ev.Sequence = 0
	ch.last = &ev
}

// Detach removes conn from its channel and closes it. Safe to call more than once.
func (r *Registry) Detach(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.RLock()
	ch := r.channels[conn.Channel]
	r.mu.RUnlock()

	if ch != nil {
		ch.mu.Lock()
		r.removeLocked(ch, conn)
		ch.mu.Unlock()
		return
	}
	// Channel already evicted, which only happens without connections.
	conn.close()
}

func (r *Registry) removeLocked(ch *channel, conn *Connection) {
	if ch.remove(conn) {
		ch.lastActivity = r.clock.Now()
		r.metrics.connectionClosed()
	}
	conn.close()
}

// Broadcast writes ev to every connection of ev.Channel. Write failures detach
// the failing connection and are only logged.
func (r *Registry) Broadcast(ctx context.Context, ev stream.Event) {
	r.mu.RLock()
	ch := r.channels[ev.Channel]
	r.mu.RUnlock()
	if ch == nil {
		return
	}

	frame := sse.Encode(ev)
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.evicted {
		return
	}
	ch.lastActivity = r.clock.Now()
	r.writeAllLocked(ctx, ch, frame)
}

// Heartbeat writes a keep-alive comment to every connection of every channel.
func (r *Registry) Heartbeat(ctx context.Context) {
	frame := sse.Encode(stream.Heartbeat("", r.clock.Now()))

	for _, ch := range r.snapshotChannels() {
		ch.mu.Lock()
		if !ch.evicted {
			now := r.clock.Now()
			for _, conn := range slices.Clone(ch.order) {
				if err := r.writeLocked(ctx, conn, frame); err != nil {
					r.dropLocked(ctx, ch, conn, err)
					continue
				}
				conn.lastHeartbeat.Store(now.UnixNano())
			}
		}
		ch.mu.Unlock()
	}
	r.metrics.heartbeat()
}

// EvictIdle removes channels without connections that saw no activity for
// the configured TTL. It returns the number of evicted channels.
//
// The registry lock is never held while waiting on a channel lock. A channel
// whose lock is taken is busy and therefore skipped until the next pass.
func (r *Registry) EvictIdle() int {
	now := r.clock.Now()

	var idle []*channel
	for _, ch := range r.snapshotChannels() {
		if !ch.mu.TryLock() {
			continue
		}
		if !ch.evicted && ch.idle(now, r.cfg.ChannelTTL) {
			ch.evicted = true
			idle = append(idle, ch)
		}
		ch.mu.Unlock()
	}
	if len(idle) == 0 {
		return 0
	}

	r.mu.Lock()
	for _, ch := range idle {
		if r.channels[ch.name] == ch {
			delete(r.channels, ch.name)
		}
	}
	remaining := len(r.channels)
	r.mu.Unlock()

	r.metrics.channelsEvicted(len(idle), remaining)
	r.log.Debug("idle channels evicted", logger.Count("evicted", len(idle)), logger.Count("channels", remaining))
	return len(idle)
}

// Run drives the heartbeat and janitor loops until ctx is cancelled, then
// detaches every connection. It has the errgroup.Go signature.
func (r *Registry) Run(ctx context.Context) func() error {
	return func() error {
		heartbeat := r.clock.NewTicker(r.cfg.HeartbeatInterval)
		defer heartbeat.Stop()
		janitor := r.clock.NewTicker(r.cfg.JanitorInterval)
		defer janitor.Stop()

		r.log.InfoContext(ctx, "registry started",
			logger.Duration(r.cfg.HeartbeatInterval),
			slog.Duration("channel_ttl", r.cfg.ChannelTTL),
		)

		for {
			select {
			case <-ctx.Done():
				r.Close()
				r.log.Info("registry stopped")
				return nil
			case <-heartbeat.Chan():
				r.Heartbeat(ctx)
			case <-janitor.Chan():
				r.EvictIdle()
			}
		}
	}
}

// Close detaches every connection. Channels and their snapshots are kept.
func (r *Registry) Close() {
	for _, ch := range r.snapshotChannels() {
		ch.mu.Lock()
		for _, conn := range slices.Clone(ch.order) {
			r.removeLocked(ch, conn)
		}
		ch.mu.Unlock()
	}
}

// Snapshot returns the last event emitted on channel, if any.
func (r *Registry) Snapshot(name string) (stream.Event, bool) {
	r.mu.RLock()
	ch := r.channels[name]
	r.mu.RUnlock()
	if ch == nil {
		return stream.Event{}, false
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.last == nil {
		return stream.Event{}, false
	}
	return *ch.last, true
}

// ConnectionCount returns the number of open connections on channel.
func (r *Registry) ConnectionCount(name string) int {
	r.mu.RLock()
	ch := r.channels[name]
	r.mu.RUnlock()
	if ch == nil {
		return 0
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.conns)
}

// Stats counts channels and open connections.
func (r *Registry) Stats() Stats {
	chans := r.snapshotChannels()
	st := Stats{Channels: len(chans)}
	for _, ch := range chans {
		ch.mu.Lock()
		st.Connections += len(ch.conns)
		ch.mu.Unlock()
	}
	return st
}

// publish assigns the next sequence id of a channel and delivers the event.
func (r *Registry) publish(ctx context.Context, name, payload string) (stream.Event, error) {
	if err := stream.ValidateChannel(name); err != nil {
		return stream.Event{}, err
	}

	for {
		ch := r.getOrCreate(name)
		ch.mu.Lock()
		if ch.evicted {
			ch.mu.Unlock()
			continue
		}

		now := r.clock.Now()
		ch.sequence++
		ev := stream.Update(name, ch.sequence, payload, now)
		ch.last = &ev
		ch.seeded = true
		ch.lastActivity = now
		r.writeAllLocked(ctx, ch, sse.Encode(ev))
		ch.mu.Unlock()

		r.metrics.eventPublished()
		return ev, nil
	}
}

func (r *Registry) getOrCreate(name string) *channel {
	r.mu.RLock()
	ch := r.channels[name]
	r.mu.RUnlock()
	if ch != nil {
		return ch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ch = r.channels[name]; ch != nil {
		return ch
	}
	ch = newChannel(name, r.clock.Now())
	r.channels[name] = ch
	r.metrics.channelsActive(len(r.channels))
	return ch
}

func (r *Registry) snapshotChannels() []*channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch)
	}
	return out
}

func (r *Registry) writeAllLocked(ctx context.Context, ch *channel, frame []byte) {
	for _, conn := range slices.Clone(ch.order) {
		if err := r.writeLocked(ctx, conn, frame); err != nil {
			r.dropLocked(ctx, ch, conn, err)
		}
	}
}

// writeLocked writes one frame bounded by the write timeout. Cancellation of
// the caller's context does not abort writes to viewers.
func (r *Registry) writeLocked(ctx context.Context, conn *Connection, frame []byte) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.WriteTimeout)
	defer cancel()

	err := conn.sink.WriteFrame(wctx, frame)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(ErrWriteTimeout, err)
	}
	return err
}

func (r *Registry) dropLocked(ctx context.Context, ch *channel, conn *Connection, err error) {
	r.removeLocked(ch, conn)
	r.metrics.writeFailed()
	r.log.WarnContext(ctx, "connection detached after failed write",
		logger.Error(&WriteError{ConnectionID: conn.ID, Channel: ch.name, Err: err}),
		logger.Channel(ch.name),
		logger.ConnectionID(conn.ID),
	)
}
