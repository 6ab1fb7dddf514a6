// Package stream defines the event envelope shared by the producer and the
// consumer sides of the result feed.
//
// An Event is a tagged variant: its Kind tells whether it carries a domain
// update, a heartbeat or the synthetic connected signal. Sequence is the only
// ordering authority; EmittedAt and ReceivedAt are informational and may skew
// between hosts.
//
//	ev := stream.Event{
//		Channel:  "table-1",
//		Sequence: 42,
//		Kind:     stream.KindUpdate,
//		Payload:  `{"number":17,"color":"black"}`,
//	}
//
// Channel names identify one roulette table. Use ValidateChannel before
// accepting a name from the outside; the wildcard "*" is only meaningful for
// consumer-side subscriptions and is rejected by ValidateChannel.
package stream
