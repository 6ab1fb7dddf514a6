// Package feed is the consumer side of a table result stream.
//
// A Client keeps one logical connection to a producer channel and fans the
// decoded events out to subscribers:
//
//	client, err := feed.NewClient(cfg, feed.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	client.OnStatus(func(s feed.Status) { indicator.Set(s.Connected()) })
//
//	id, _ := client.Subscribe("table-7", func(ev stream.Event) error {
//		return render(ev.Payload)
//	})
//	defer client.Unsubscribe(id)
//
//	_ = client.Connect(ctx)
//
// # Transports
//
// Transports are tried in a fixed cyclic order: websocket, direct SSE,
// proxied SSE, polling. A failed open advances to the next one after a
// backoff computed by Policy. Once the failures exceed Policy.Cycles passes
// over the list the manager stops cycling and keeps retrying only the
// fallback transport. A successful open resets the attempt counter and the
// preference index.
//
// Each session starts with a connected signal followed by the producer's
// snapshot, an update without sequence id. Missed events are never replayed,
// so every reconnect begins a fresh logical stream. Within one session,
// duplicate or stale sequence ids are dropped. A session that stays silent
// longer than the heartbeat timeout is treated as dropped.
//
// # Subscribers
//
// Subscribers receive update events by default; WithKinds selects heartbeat
// or connected events as well. Callbacks run synchronously on the manager
// goroutine in registration order. An error or panic in one callback is
// logged and does not affect the others.
package feed
