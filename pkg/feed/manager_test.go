package feed_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/spinstream/core/stream"
	"github.com/dmitrymomot/spinstream/pkg/feed"
)

var errRefused = errors.New("connection refused")

var fastPolicy = feed.Policy{Base: time.Millisecond, Growth: 1, Max: time.Millisecond, Cycles: 2}

type attemptLog struct {
	mu          sync.Mutex
	methods     []feed.Method
	inFlight    int
	maxInFlight int
}

func (l *attemptLog) begin(m feed.Method) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.methods = append(l.methods, m)
	l.inFlight++
	l.maxInFlight = max(l.maxInFlight, l.inFlight)
}

func (l *attemptLog) end() {
	l.mu.Lock()
	l.inFlight--
	l.mu.Unlock()
}

func (l *attemptLog) snapshot() []feed.Method {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]feed.Method(nil), l.methods...)
}

func (l *attemptLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.methods)
}

type scriptTransport struct {
	method feed.Method
	log    *attemptLog
	open   func(ctx context.Context) (feed.Session, error)
}

func (t *scriptTransport) Method() feed.Method { return t.method }

func (t *scriptTransport) Open(ctx context.Context, _ string) (feed.Session, error) {
	t.log.begin(t.method)
	defer t.log.end()
	return t.open(ctx)
}

func failing(context.Context) (feed.Session, error) { return nil, errRefused }

// chanSession yields frames pushed on its channel; closing the channel ends
// the session with io.EOF.
type chanSession struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func newChanSession(frames ...string) *chanSession {
	s := &chanSession{frames: make(chan []byte, len(frames)+8), done: make(chan struct{})}
	for _, f := range frames {
		s.frames <- []byte(f)
	}
	return s
}

func (s *chanSession) Next(ctx context.Context) ([]byte, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-s.done:
		return nil, feed.ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *chanSession) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

type eventSink struct {
	mu  sync.Mutex
	evs []stream.Event
}

func (s *eventSink) dispatch(ev stream.Event) {
	s.mu.Lock()
	s.evs = append(s.evs, ev)
	s.mu.Unlock()
}

func (s *eventSink) updates() []stream.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []stream.Event
	for _, ev := range s.evs {
		if ev.Kind == stream.KindUpdate {
			out = append(out, ev)
		}
	}
	return out
}

func fourTransports(log *attemptLog, open map[feed.Method]func(context.Context) (feed.Session, error)) []feed.Transport {
	ts := make([]feed.Transport, 0, len(feed.DefaultOrder))
	for _, m := range feed.DefaultOrder {
		fn := open[m]
		if fn == nil {
			fn = failing
		}
		ts = append(ts, &scriptTransport{method: m, log: log, open: fn})
	}
	return ts
}

func TestManager_FallbackCommitment(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	m, err := feed.NewManager("table-1", fourTransports(log, nil), func(stream.Event) {}, feed.WithPolicy(fastPolicy))
	require.NoError(t, err)

	require.NoError(t, m.Connect(context.Background()))
	require.Eventually(t, func() bool { return log.count() >= 13 }, 2*time.Second, time.Millisecond)
	m.Disconnect()

	got := log.snapshot()[:13]
	want := []feed.Method{
		feed.MethodWebSocket, feed.MethodSSEDirect, feed.MethodSSEProxied, feed.MethodPolling,
		feed.MethodWebSocket, feed.MethodSSEDirect, feed.MethodSSEProxied, feed.MethodPolling,
		feed.MethodWebSocket,
		// committed: the next cycle item would be sse-direct
		feed.MethodWebSocket, feed.MethodWebSocket, feed.MethodWebSocket, feed.MethodWebSocket,
	}
	assert.Equal(t, want, got)
}

func TestManager_CustomFallback(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	m, err := feed.NewManager("table-1", fourTransports(log, nil), func(stream.Event) {},
		feed.WithPolicy(fastPolicy),
		feed.WithFallback(feed.MethodPolling),
	)
	require.NoError(t, err)

	require.NoError(t, m.Connect(context.Background()))
	require.Eventually(t, func() bool { return log.count() >= 12 }, 2*time.Second, time.Millisecond)
	m.Disconnect()

	got := log.snapshot()
	for _, method := range got[9:12] {
		assert.Equal(t, feed.MethodPolling, method)
	}
}

func TestManager_SuccessResetsState(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	sess := newChanSession(": connected hi\n\n")
	ts := fourTransports(log, map[feed.Method]func(context.Context) (feed.Session, error){
		feed.MethodSSEDirect: func(context.Context) (feed.Session, error) { return sess, nil },
	})

	m, err := feed.NewManager("table-1", ts, func(stream.Event) {}, feed.WithPolicy(fastPolicy))
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		statuses []feed.Status
	)
	m.OnStatus(func(s feed.Status) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	})

	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	require.Eventually(t, m.IsConnected, time.Second, time.Millisecond)
	assert.Equal(t, 0, m.Attempt())
	assert.Equal(t, feed.MethodSSEDirect, m.Method())
	assert.Equal(t, []feed.Method{feed.MethodWebSocket, feed.MethodSSEDirect}, log.snapshot())

	mu.Lock()
	defer mu.Unlock()
	var sawBackoff, sawConnected bool
	for _, s := range statuses {
		if s.State == feed.StateBackoff {
			sawBackoff = true
			var terr *feed.TransportError
			require.ErrorAs(t, s.Err, &terr)
			assert.Equal(t, feed.MethodWebSocket, terr.Method)
		}
		if s.Connected() {
			sawConnected = true
			assert.Equal(t, feed.MethodSSEDirect, s.Method)
		}
	}
	assert.True(t, sawBackoff)
	assert.True(t, sawConnected)
}

func TestManager_DropRestartsFromPreferred(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	var opens sync.Mutex
	first := true
	ts := fourTransports(log, map[feed.Method]func(context.Context) (feed.Session, error){
		feed.MethodSSEDirect: func(context.Context) (feed.Session, error) {
			opens.Lock()
			defer opens.Unlock()
			if first {
				first = false
				s := newChanSession(": connected\n\n")
				close(s.frames)
				return s, nil
			}
			return newChanSession(), nil
		},
	})

	m, err := feed.NewManager("table-1", ts, func(stream.Event) {}, feed.WithPolicy(fastPolicy))
	require.NoError(t, err)
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	require.Eventually(t, func() bool { return log.count() >= 4 }, time.Second, time.Millisecond)
	assert.Equal(t, []feed.Method{
		feed.MethodWebSocket, feed.MethodSSEDirect,
		feed.MethodWebSocket, feed.MethodSSEDirect,
	}, log.snapshot()[:4])
	require.Eventually(t, m.IsConnected, time.Second, time.Millisecond)
}

func TestManager_DecodesAndDeduplicates(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	sess := newChanSession(
		": connected hello\n\n",
		"event: update\nid: 1\ndata: 17 black\n\n",
		"event: update\nid: 1\ndata: 17 black\n\n",
		"event: spin\ndata: 7 red\n\n",
		"x-proxy-trace: abc\n\n",
		"event: update\nid: 2\ndata: 0 green\n\n",
		": heartbeat\n\n",
	)
	ts := []feed.Transport{&scriptTransport{
		method: feed.MethodSSEDirect,
		log:    log,
		open:   func(context.Context) (feed.Session, error) { return sess, nil },
	}}

	sink := &eventSink{}
	m, err := feed.NewManager("table-1", ts, sink.dispatch, feed.WithPolicy(fastPolicy))
	require.NoError(t, err)
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	require.Eventually(t, func() bool { return len(sink.updates()) == 2 }, time.Second, time.Millisecond)
	ups := sink.updates()
	assert.Equal(t, uint64(1), ups[0].Sequence)
	assert.Equal(t, "17 black", ups[0].Payload)
	assert.Equal(t, uint64(2), ups[1].Sequence)
	assert.Equal(t, "table-1", ups[1].Channel)
	assert.False(t, ups[1].ReceivedAt.IsZero())

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.evs) == 4
	}, time.Second, time.Millisecond)
	assert.True(t, m.IsConnected(), "malformed frame must not drop the session")
	assert.Equal(t, 1, log.count())
}

func TestManager_DisconnectIsSticky(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	m, err := feed.NewManager("table-1", fourTransports(log, nil), func(stream.Event) {}, feed.WithPolicy(fastPolicy))
	require.NoError(t, err)

	require.NoError(t, m.Connect(context.Background()))
	require.Eventually(t, func() bool { return log.count() >= 3 }, time.Second, time.Millisecond)

	m.Disconnect()
	assert.Equal(t, feed.StateDisconnected, m.State())

	time.Sleep(20 * time.Millisecond)
	n := log.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, log.count(), "no attempts after Disconnect")

	require.NoError(t, m.Reconnect(context.Background()))
	require.Eventually(t, func() bool { return log.count() > n }, time.Second, time.Millisecond)
	m.Disconnect()
}

func TestManager_ConnectIsIdempotentAndSequential(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	slowFail := func(context.Context) (feed.Session, error) {
		time.Sleep(2 * time.Millisecond)
		return nil, errRefused
	}
	ts := fourTransports(log, map[feed.Method]func(context.Context) (feed.Session, error){
		feed.MethodWebSocket:  slowFail,
		feed.MethodSSEDirect:  slowFail,
		feed.MethodSSEProxied: slowFail,
		feed.MethodPolling:    slowFail,
	})
	m, err := feed.NewManager("table-1", ts, func(stream.Event) {}, feed.WithPolicy(fastPolicy))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Connect(context.Background()))
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return log.count() >= 8 }, 2*time.Second, time.Millisecond)
	m.Disconnect()

	log.mu.Lock()
	defer log.mu.Unlock()
	assert.Equal(t, 1, log.maxInFlight)
}

func TestManager_ReconnectWaitsForPreviousAttempt(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	// Opens ignore cancellation, like a dial stuck in a syscall.
	stubborn := func(context.Context) (feed.Session, error) {
		time.Sleep(30 * time.Millisecond)
		return nil, errRefused
	}
	ts := []feed.Transport{&scriptTransport{method: feed.MethodWebSocket, log: log, open: stubborn}}

	m, err := feed.NewManager("table-1", ts, func(stream.Event) {}, feed.WithPolicy(fastPolicy))
	require.NoError(t, err)

	require.NoError(t, m.Connect(context.Background()))
	require.Eventually(t, func() bool { return log.count() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, m.Reconnect(context.Background()))

	m.Disconnect()
	require.NoError(t, m.Connect(context.Background()))

	require.Eventually(t, func() bool { return log.count() >= 3 }, 2*time.Second, time.Millisecond)
	m.Disconnect()

	log.mu.Lock()
	defer log.mu.Unlock()
	assert.Equal(t, 1, log.maxInFlight)
}

func TestManager_OpenTimeout(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	ts := fourTransports(log, map[feed.Method]func(context.Context) (feed.Session, error){
		feed.MethodWebSocket: func(ctx context.Context) (feed.Session, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		feed.MethodSSEDirect: func(context.Context) (feed.Session, error) { return newChanSession(), nil },
	})

	m, err := feed.NewManager("table-1", ts, func(stream.Event) {},
		feed.WithPolicy(fastPolicy),
		feed.WithOpenTimeout(20*time.Millisecond),
	)
	require.NoError(t, err)

	timedOut := make(chan struct{}, 1)
	m.OnStatus(func(s feed.Status) {
		if errors.Is(s.Err, feed.ErrOpenTimeout) {
			select {
			case timedOut <- struct{}{}:
			default:
			}
		}
	})

	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	require.Eventually(t, m.IsConnected, time.Second, time.Millisecond)
	assert.Equal(t, feed.MethodSSEDirect, m.Method())
	select {
	case <-timedOut:
	default:
		t.Fatal("expected an open timeout status")
	}
}

func TestManager_HeartbeatWatchdog(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	ts := []feed.Transport{&scriptTransport{
		method: feed.MethodSSEDirect,
		log:    log,
		open:   func(context.Context) (feed.Session, error) { return newChanSession(), nil },
	}}

	m, err := feed.NewManager("table-1", ts, func(stream.Event) {},
		feed.WithPolicy(fastPolicy),
		feed.WithHeartbeatTimeout(20*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	require.Eventually(t, func() bool { return log.count() >= 3 }, time.Second, time.Millisecond)
}

func TestManager_ContextCancelStopsLoop(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	m, err := feed.NewManager("table-1", fourTransports(log, nil), func(stream.Event) {}, feed.WithPolicy(fastPolicy))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Connect(ctx))
	require.Eventually(t, func() bool { return log.count() >= 2 }, time.Second, time.Millisecond)
	cancel()

	require.Eventually(t, func() bool { return m.State() == feed.StateDisconnected }, time.Second, time.Millisecond)

	// A loop ended by its context can be started again.
	n := log.count()
	require.NoError(t, m.Connect(context.Background()))
	require.Eventually(t, func() bool { return log.count() > n }, time.Second, time.Millisecond)
	m.Disconnect()
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()
	log := &attemptLog{}
	ts := fourTransports(log, nil)
	noop := func(stream.Event) {}

	_, err := feed.NewManager("table-1", nil, noop)
	require.ErrorIs(t, err, feed.ErrNoTransports)

	_, err = feed.NewManager("", ts, noop)
	require.ErrorIs(t, err, stream.ErrInvalidChannel)

	_, err = feed.NewManager("table-1", ts, nil)
	require.ErrorIs(t, err, feed.ErrNilCallback)

	_, err = feed.NewManager("table-1", ts, noop, feed.WithPolicy(feed.Policy{}))
	require.ErrorIs(t, err, feed.ErrInvalidPolicy)

	m, err := feed.NewManager("table-1", ts, noop)
	require.NoError(t, err)
	assert.Equal(t, feed.StateIdle, m.State())
	assert.False(t, m.IsConnected())
}
