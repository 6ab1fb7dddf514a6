package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/spinstream/core/logger"
	"github.com/dmitrymomot/spinstream/core/sse"
	"github.com/dmitrymomot/spinstream/core/stream"
)

// Manager keeps one logical connection to a producer channel alive, cycling
// through transports in preference order. Attempts are strictly sequential:
// a single loop goroutine owns the active session and every timer.
type Manager struct {
	channel    string
	transports []Transport
	fallback   int
	policy     Policy
	opts       options
	log        *slog.Logger
	dispatch   func(stream.Event)

	mu        sync.Mutex
	state     State
	method    Method
	attempt   int
	index     int
	committed bool
	sticky    bool
	gen       uint64
	cancel    context.CancelFunc
	// done is closed when the most recently started loop has exited.
	done      chan struct{}
	current   *Attempt
	observers []observer
	nextObs   uint64
}

type observer struct {
	id uint64
	fn func(Status)
}

// NewManager creates a manager for channel. dispatch receives every decoded
// event, on the manager's loop goroutine.
func NewManager(channel string, transports []Transport, dispatch func(stream.Event), opts ...Option) (*Manager, error) {
	if err := stream.ValidateChannel(channel); err != nil {
		return nil, err
	}
	if len(transports) == 0 {
		return nil, ErrNoTransports
	}
	if dispatch == nil {
		return nil, ErrNilCallback
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.policy.Validate(); err != nil {
		return nil, err
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fallback := slices.IndexFunc(transports, func(t Transport) bool { return t.Method() == o.fallback })
	if fallback < 0 {
		fallback = 0
	}

	return &Manager{
		channel:    channel,
		transports: slices.Clone(transports),
		fallback:   fallback,
		policy:     o.policy,
		opts:       o,
		log:        o.log.With(logger.Component("feed.manager"), logger.Channel(channel)),
		dispatch:   dispatch,
	}, nil
}

// Connect starts the connection loop. It is a no-op while the loop is already
// running. The loop stops when ctx is cancelled or Disconnect is called.
// An explicit Connect clears a previous Disconnect.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return nil
	}
	m.sticky = false
	gen := m.startLocked(ctx)
	m.mu.Unlock()

	m.notify(gen)
	return nil
}

// Reconnect clears a manual disconnect and starts over from the preferred
// transport, abandoning any session or attempt in progress.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.sticky = false
	m.attempt, m.index, m.committed = 0, 0, false
	gen := m.startLocked(ctx)
	m.mu.Unlock()

	m.notify(gen)
	return nil
}

func (m *Manager) startLocked(ctx context.Context) uint64 {
	loopCtx, cancel := context.WithCancel(ctx)
	m.gen++
	m.cancel = cancel
	m.state = StateConnecting
	gen := m.gen
	prev := m.done
	done := make(chan struct{})
	m.done = done
	go m.run(loopCtx, gen, prev, done)
	return gen
}

// Disconnect stops the loop, cancels every pending timer and closes the
// active session. No automatic reconnection happens until Connect or
// Reconnect is called again.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.sticky = true
	cancel := m.cancel
	m.cancel = nil
	m.gen++
	m.state = StateDisconnected
	m.current = nil
	gen := m.gen
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.notify(gen)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// Attempt returns the number of consecutive failed attempts.
func (m *Manager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// Method returns the transport of the current or last attempt.
func (m *Manager) Method() Method {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.method
}

// CurrentAttempt returns the attempt in flight, if the manager is connecting.
func (m *Manager) CurrentAttempt() (Attempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Attempt{}, false
	}
	return *m.current, true
}

// OnStatus registers fn for state transitions and returns a function that
// removes it. Observers run synchronously and must not block.
func (m *Manager) OnStatus(fn func(Status)) func() {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers = append(m.observers, observer{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		m.observers = slices.DeleteFunc(m.observers, func(o observer) bool { return o.id == id })
		m.mu.Unlock()
	}
}

// run waits for the previous loop, which is already cancelled, so an attempt
// of the old loop never overlaps with the first attempt of the new one.
func (m *Manager) run(ctx context.Context, gen uint64, prev <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer m.finish(gen)

	if prev != nil {
		<-prev
	}

	for ctx.Err() == nil {
		t := m.transports[m.pick(gen)]

		sess, err := m.open(ctx, gen, t)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := m.policy.NextDelay(m.fail(gen, t.Method(), err))
			if !m.sleep(ctx, delay) {
				return
			}
			continue
		}

		m.opened(gen, t.Method())
		err = m.consume(ctx, sess)
		_ = sess.Close()
		if ctx.Err() != nil {
			return
		}

		terr := &TransportError{Method: t.Method(), Err: err}
		m.log.WarnContext(ctx, "connection dropped", logger.Error(terr), logger.Transport(string(t.Method())))
		m.transition(gen, StateBackoff, t.Method(), terr)
		if !m.sleep(ctx, m.policy.NextDelay(0)) {
			return
		}
	}
}

// finish marks the loop of gen as gone, unless Disconnect or Reconnect
// already replaced it.
func (m *Manager) finish(gen uint64) {
	m.mu.Lock()
	if m.gen == gen {
		m.cancel = nil
		m.state = StateDisconnected
		m.current = nil
	}
	m.mu.Unlock()
	m.notify(gen)
}

// pick returns the index of the next transport and marks the attempt.
func (m *Manager) pick(gen uint64) int {
	m.mu.Lock()
	idx := m.index
	if m.committed {
		idx = m.fallback
	}
	method := m.transports[idx].Method()
	if m.gen == gen {
		m.state = StateConnecting
		m.method = method
		m.current = &Attempt{Method: method, Number: m.attempt + 1, StartedAt: m.opts.clock.Now()}
	}
	m.mu.Unlock()

	m.notify(gen)
	return idx
}

func (m *Manager) open(ctx context.Context, gen uint64, t Transport) (Session, error) {
	actx, cancel := context.WithCancel(ctx)
	defer cancel()

	var timedOut atomic.Bool
	timer := m.opts.clock.AfterFunc(m.opts.openTimeout, func() {
		timedOut.Store(true)
		cancel()
	})
	defer timer.Stop()

	m.log.DebugContext(ctx, "opening transport", logger.Transport(string(t.Method())))
	sess, err := t.Open(actx, m.channel)
	if err != nil {
		if timedOut.Load() {
			err = errors.Join(ErrOpenTimeout, err)
		}
		return nil, err
	}
	if timedOut.Load() {
		_ = sess.Close()
		return nil, ErrOpenTimeout
	}
	return sess, nil
}

// fail records a failed open and returns the delay exponent for the backoff.
func (m *Manager) fail(gen uint64, method Method, err error) int {
	terr := &TransportError{Method: method, Err: err}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return 0
	}
	m.attempt++
	attempt := m.attempt
	commitNow := false
	if !m.committed {
		if m.policy.ShouldGiveUp(attempt, len(m.transports)) {
			m.committed = true
			commitNow = true
		} else {
			m.index = (m.index + 1) % len(m.transports)
		}
	}
	m.state = StateBackoff
	m.current = nil
	m.mu.Unlock()

	m.log.Warn("transport failed",
		logger.Error(terr),
		logger.Transport(string(method)),
		logger.Attempt(attempt),
	)
	if commitNow {
		m.log.Error("committing to fallback transport",
			logger.Error(ErrExhaustedRetries),
			logger.Transport(string(m.transports[m.fallback].Method())),
			logger.Attempt(attempt),
		)
	}
	m.notifyWith(gen, terr)
	return attempt - 1
}

func (m *Manager) opened(gen uint64, method Method) {
	m.mu.Lock()
	if m.gen == gen {
		m.attempt, m.index, m.committed = 0, 0, false
		m.state = StateConnected
		m.method = method
		m.current = nil
	}
	m.mu.Unlock()

	m.log.Info("connected", logger.Transport(string(method)))
	m.notify(gen)
}

func (m *Manager) transition(gen uint64, s State, method Method, err error) {
	m.mu.Lock()
	if m.gen == gen {
		m.state = s
		m.method = method
	}
	m.mu.Unlock()
	m.notifyWith(gen, err)
}

// consume reads frames until the session fails, the heartbeat watchdog
// fires or ctx ends.
func (m *Manager) consume(ctx context.Context, sess Session) error {
	var silent atomic.Bool
	watchdog := m.opts.clock.AfterFunc(m.opts.heartbeatTimeout, func() {
		silent.Store(true)
		_ = sess.Close()
	})
	defer watchdog.Stop()

	stop := context.AfterFunc(ctx, func() { _ = sess.Close() })
	defer stop()

	var lastSeq uint64
	for {
		frame, err := sess.Next(ctx)
		if err != nil {
			if silent.Load() {
				return errors.Join(ErrHeartbeatTimeout, err)
			}
			return err
		}
		watchdog.Reset(m.opts.heartbeatTimeout)

		ev, ok, err := sse.Parse(frame, m.channel)
		if err != nil {
			m.log.WarnContext(ctx, "dropping malformed frame", logger.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if ev.Kind == stream.KindUpdate && ev.Sequence > 0 {
			if ev.Sequence <= lastSeq {
				m.log.DebugContext(ctx, "dropping stale event",
					logger.Sequence(ev.Sequence),
					slog.Uint64("last_sequence", lastSeq),
				)
				continue
			}
			lastSeq = ev.Sequence
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		ev.ReceivedAt = m.opts.clock.Now()
		m.dispatch(ev)
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	t := m.opts.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.Chan():
		return true
	}
}

func (m *Manager) notify(gen uint64) {
	m.notifyWith(gen, nil)
}

func (m *Manager) notifyWith(gen uint64, err error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	st := Status{
		State:   m.state,
		Method:  m.method,
		Attempt: m.attempt,
		Err:     err,
		At:      m.opts.clock.Now(),
	}
	obs := slices.Clone(m.observers)
	m.mu.Unlock()

	for _, o := range obs {
		o.fn(st)
	}
}
