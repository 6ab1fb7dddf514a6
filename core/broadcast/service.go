package broadcast

import (
	"context"

	"github.com/dmitrymomot/spinstream/core/stream"
)

// Service publishes domain events to channel viewers.
type Service struct {
	reg *Registry
}

// NewService returns a service publishing through reg.
func NewService(reg *Registry) (*Service, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	return &Service{reg: reg}, nil
}

// Publish stamps the next sequence id of channel, stores the event as the
// channel snapshot and delivers it to every connection. Only the channel's
// own lock is taken, so different channels publish in parallel.
func (s *Service) Publish(ctx context.Context, channel, payload string) (uint64, error) {
	ev, err := s.reg.publish(ctx, channel, payload)
	if err != nil {
		return 0, err
	}
	return ev.Sequence, nil
}

// Latest returns the snapshot of channel.
func (s *Service) Latest(channel string) (stream.Event, bool) {
	return s.reg.Snapshot(channel)
}

// Registry exposes the underlying registry.
func (s *Service) Registry() *Registry {
	return s.reg
}
