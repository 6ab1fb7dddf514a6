package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Connection is one open viewer stream. It is owned by the Registry; callers
// hold it only to wait on Done and to Detach it.
type Connection struct {
	ID       string
	Channel  string
	OpenedAt time.Time

	sink          Sink
	lastHeartbeat atomic.Int64
	done          chan struct{}
	closeOnce     sync.Once
}

func newConnection(channel string, sink Sink, now time.Time) *Connection {
	c := &Connection{
		ID:       uuid.NewString(),
		Channel:  channel,
		OpenedAt: now,
		sink:     sink,
		done:     make(chan struct{}),
	}
	c.lastHeartbeat.Store(now.UnixNano())
	return c
}

// Done is closed once the connection has been detached.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// LastHeartbeatAt reports the last successful heartbeat write, or the open
// time if no heartbeat was written yet.
func (c *Connection) LastHeartbeatAt() time.Time {
	return time.Unix(0, c.lastHeartbeat.Load())
}

func (c *Connection) close() bool {
	closed := false
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.sink.Close()
		closed = true
	})
	return closed
}
