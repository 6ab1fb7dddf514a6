package ingest

import "context"

type Subscription = subscription

// SetSubscribe replaces the pub/sub subscription factory.
func (r *Relay) SetSubscribe(fn func(ctx context.Context, pattern string) Subscription) {
	r.subscribe = fn
}
