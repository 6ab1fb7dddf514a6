package broadcast_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/spinstream/core/sse"
	"github.com/dmitrymomot/spinstream/core/stream"
)

var errBrokenPipe = errors.New("broken pipe")

type recordingSink struct {
	mu     sync.Mutex
	frames [][]byte
	fail   error
	// failAfter lets the first n writes succeed before fail is returned.
	failAfter int
	closes    int
}

func (s *recordingSink) WriteFrame(_ context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil && len(s.frames) >= s.failAfter {
		return s.fail
	}
	s.frames = append(s.frames, bytes.Clone(frame))
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *recordingSink) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *recordingSink) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// events decodes every recorded frame.
func (s *recordingSink) events(t *testing.T, channel string) []stream.Event {
	t.Helper()
	var out []stream.Event
	for _, f := range s.Frames() {
		ev, ok, err := sse.Parse(f, channel)
		require.NoError(t, err)
		require.True(t, ok, "frame %q", f)
		out = append(out, ev)
	}
	return out
}

func updates(evs []stream.Event) []stream.Event {
	var out []stream.Event
	for _, ev := range evs {
		if ev.Kind == stream.KindUpdate {
			out = append(out, ev)
		}
	}
	return out
}

type staticSource struct {
	ev  stream.Event
	ok  bool
	err error

	mu    sync.Mutex
	calls int
}

func (s *staticSource) Latest(context.Context, string) (stream.Event, bool, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.ev, s.ok, s.err
}

// stallingSink accepts writes until stall is set, then blocks each write
// until its deadline or release.
type stallingSink struct {
	stall   atomic.Bool
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStallingSink() *stallingSink {
	return &stallingSink{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *stallingSink) WriteFrame(ctx context.Context, _ []byte) error {
	if !s.stall.Load() {
		return nil
	}
	s.once.Do(func() { close(s.entered) })
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.release:
		return nil
	}
}

func (s *stallingSink) Close() error { return nil }
