package broadcast

import (
	"sync"
	"time"

	"github.com/dmitrymomot/spinstream/core/stream"
)

type channel struct {
	name string

	mu           sync.Mutex
	sequence     uint64
	conns        map[string]*Connection
	order        []*Connection
	last         *stream.Event
	seeded       bool
	lastActivity time.Time
	evicted      bool
}

func newChannel(name string, now time.Time) *channel {
	return &channel{
		name:         name,
		conns:        make(map[string]*Connection),
		lastActivity: now,
	}
}

// add and remove keep order in attach order so every broadcast visits
// connections deterministically. Callers hold mu.
func (ch *channel) add(conn *Connection) {
	ch.conns[conn.ID] = conn
	ch.order = append(ch.order, conn)
}

func (ch *channel) remove(conn *Connection) bool {
	if ch.conns[conn.ID] != conn {
		return false
	}
	delete(ch.conns, conn.ID)
	for i, c := range ch.order {
		if c == conn {
			ch.order = append(ch.order[:i], ch.order[i+1:]...)
			break
		}
	}
	return true
}

func (ch *channel) idle(now time.Time, ttl time.Duration) bool {
	return len(ch.conns) == 0 && now.Sub(ch.lastActivity) >= ttl
}
