package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/spinstream/core/sse"
	"github.com/dmitrymomot/spinstream/core/stream"
)

// DefaultPollInterval is the wait between snapshot requests.
const DefaultPollInterval = 2 * time.Second

// PollingTransport emulates a stream by polling {base}/channel/{channel}/snapshot.
// The session starts with a connected signal and the current snapshot, then
// yields each newer event, or a heartbeat when nothing changed.
type PollingTransport struct {
	base     string
	client   *http.Client
	interval time.Duration
	clock    clockwork.Clock
}

// NewPollingTransport polls the snapshot endpoint every interval. Nil client
// and clock and a non-positive interval fall back to defaults.
func NewPollingTransport(baseURL string, client *http.Client, interval time.Duration, clock clockwork.Clock) *PollingTransport {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PollingTransport{base: baseURL, client: client, interval: interval, clock: clock}
}

func (t *PollingTransport) Method() Method { return MethodPolling }

func (t *PollingTransport) Open(ctx context.Context, channel string) (Session, error) {
	u, err := endpoint(t.base, "channel", channel, "snapshot")
	if err != nil {
		return nil, err
	}

	s := &pollingSession{
		t:       t,
		url:     u,
		channel: channel,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	ev, ok, err := s.fetch(ctx)
	if err != nil {
		s.cancel()
		return nil, err
	}

	s.pending = append(s.pending, sse.Encode(stream.Connected(channel, "polling", t.clock.Now())))
	if ok {
		s.remember(ev)
		ev.Sequence = 0
		s.pending = append(s.pending, sse.Encode(ev))
	}
	return s, nil
}

type pollingSession struct {
	t       *PollingTransport
	url     string
	channel string

	pending     [][]byte
	lastSeq     uint64
	lastPayload string
	seen        bool

	// ctx is cancelled by Close and aborts in-flight requests.
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *pollingSession) Next(ctx context.Context) ([]byte, error) {
	if len(s.pending) > 0 {
		f := s.pending[0]
		s.pending = s.pending[1:]
		return f, nil
	}

	timer := s.t.clock.NewTimer(s.t.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, ErrSessionClosed
	case <-timer.Chan():
	}

	ev, ok, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if ok && s.changed(ev) {
		s.remember(ev)
		return sse.Encode(ev), nil
	}
	return sse.Encode(stream.Heartbeat(s.channel, s.t.clock.Now())), nil
}

func (s *pollingSession) changed(ev stream.Event) bool {
	if !s.seen {
		return true
	}
	if ev.Sequence > 0 {
		return ev.Sequence > s.lastSeq
	}
	return s.lastSeq == 0 && ev.Payload != s.lastPayload
}

func (s *pollingSession) remember(ev stream.Event) {
	s.seen = true
	s.lastSeq = ev.Sequence
	s.lastPayload = ev.Payload
}

func (s *pollingSession) fetch(ctx context.Context) (stream.Event, bool, error) {
	if s.ctx.Err() != nil {
		return stream.Event{}, false, ErrSessionClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return stream.Event{}, false, err
	}
	resp, err := s.t.client.Do(req)
	if err != nil {
		return stream.Event{}, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return stream.Event{}, false, nil
	case http.StatusOK:
	default:
		return stream.Event{}, false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, sse.DefaultMaxFrameSize))
	if err != nil {
		return stream.Event{}, false, err
	}
	ev, ok, err := sse.Parse(body, s.channel)
	if err != nil {
		return stream.Event{}, false, err
	}
	if !ok || ev.Kind != stream.KindUpdate {
		return stream.Event{}, false, nil
	}
	return ev, true, nil
}

func (s *pollingSession) Close() error {
	s.cancel()
	return nil
}
