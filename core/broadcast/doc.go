// Package broadcast fans table results out to every viewer of a channel.
//
// A Registry owns the open connections, grouped by channel. Each channel has
// its own mutex, its own monotonically increasing sequence counter and the
// last emitted event, kept as a snapshot for viewers that join later.
// Independent channels never contend with each other; the registry-wide lock
// guards only the channel map.
//
// A Service stamps sequence ids and publishes through the registry:
//
//	reg := broadcast.NewRegistry(
//		broadcast.WithLogger(log),
//		broadcast.WithMetrics(broadcast.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	svc, err := broadcast.NewService(reg)
//
//	g.Go(reg.Run(ctx)) // heartbeat and janitor loops
//
//	seq, err := svc.Publish(ctx, "table-7", payload)
//
// Connections are attached with a Sink, the write side of an SSE response or a
// WebSocket. On attach the registry writes a ": connected" comment followed by
// the channel snapshot, framed without an id line. Both writes happen under
// the channel lock so a concurrent publish can never slip in between.
//
// # Failure handling
//
// Every write is bounded by Config.WriteTimeout. A connection whose write
// fails or times out is detached and its Done channel closed; delivery to the
// other connections of the channel continues and the publisher never sees the
// error. Detach is idempotent.
//
// # Lifecycle
//
// Channels are created on first use and evicted by the janitor once they have
// no connections and saw no activity for Config.ChannelTTL. A channel created
// again after eviction restarts its sequence at 1; the connected signal that
// opens every stream tells consumers to expect that.
package broadcast
