package feed

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/spinstream/core/logger"
	"github.com/dmitrymomot/spinstream/core/stream"
)

// Callback receives dispatched events. A returned error is logged and does
// not affect other subscribers.
type Callback func(stream.Event) error

type subscription struct {
	id      string
	channel string
	kinds   []stream.Kind
	cb      Callback
}

func (s *subscription) matches(ev stream.Event) bool {
	if s.channel != stream.Wildcard && s.channel != ev.Channel {
		return false
	}
	return slices.Contains(s.kinds, ev.Kind)
}

// SubscribeOption configures a single subscription.
type SubscribeOption func(*subscription)

// WithKinds selects the event kinds delivered to the subscription.
// Without it only update events are delivered.
func WithKinds(kinds ...stream.Kind) SubscribeOption {
	return func(s *subscription) {
		if len(kinds) > 0 {
			s.kinds = slices.Clone(kinds)
		}
	}
}

// Router fans decoded events out to subscribers. Subscribers are called
// synchronously in registration order; the lock is held only while taking a
// snapshot of the subscriber list.
type Router struct {
	log *slog.Logger

	mu   sync.RWMutex
	subs []*subscription // copy-on-write
}

// NewRouter creates an empty router. A nil logger discards output.
func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{log: log.With(logger.Component("feed.router"))}
}

// Subscribe registers cb for channel, or for every channel with stream.Wildcard.
func (r *Router) Subscribe(channel string, cb Callback, opts ...SubscribeOption) (string, error) {
	if cb == nil {
		return "", ErrNilCallback
	}
	if err := stream.ValidateSubscription(channel); err != nil {
		return "", err
	}

	sub := &subscription{
		id:      uuid.NewString(),
		channel: channel,
		kinds:   []stream.Kind{stream.KindUpdate},
		cb:      cb,
	}
	for _, opt := range opts {
		opt(sub)
	}
	for _, k := range sub.kinds {
		if !k.Valid() {
			return "", fmt.Errorf("%w: %q", stream.ErrUnknownKind, k)
		}
	}

	r.mu.Lock()
	next := make([]*subscription, len(r.subs), len(r.subs)+1)
	copy(next, r.subs)
	r.subs = append(next, sub)
	r.mu.Unlock()

	return sub.id, nil
}

// Unsubscribe removes the subscription with id. It reports false when no
// such subscription exists, including on a repeated call.
func (r *Router) Unsubscribe(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.subs, func(s *subscription) bool { return s.id == id })
	if i < 0 {
		return false
	}
	r.subs = slices.Concat(r.subs[:i], r.subs[i+1:])
	return true
}

// Clear removes every subscription.
func (r *Router) Clear() {
	r.mu.Lock()
	r.subs = nil
	r.mu.Unlock()
}

// Len returns the number of active subscriptions.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Dispatch delivers ev to every matching subscriber and returns how many were
// invoked. Changes to the subscriber list made during a dispatch apply to the
// next event.
func (r *Router) Dispatch(ev stream.Event) int {
	r.mu.RLock()
	subs := r.subs
	r.mu.RUnlock()

	n := 0
	for _, s := range subs {
		if !s.matches(ev) {
			continue
		}
		n++
		if err := r.invoke(s, ev); err != nil {
			r.log.Warn("subscriber callback failed",
				logger.Error(err),
				logger.Channel(ev.Channel),
				logger.SubscriptionID(s.id),
			)
		}
	}
	return n
}

func (r *Router) invoke(s *subscription, ev stream.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &CallbackError{SubscriptionID: s.id, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if cbErr := s.cb(ev); cbErr != nil {
		return &CallbackError{SubscriptionID: s.id, Err: cbErr}
	}
	return nil
}
