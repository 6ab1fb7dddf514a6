package stream

import (
	"fmt"
	"time"
)

// Kind tags the variant carried by an Event.
type Kind string

const (
	KindUpdate    Kind = "update"
	KindHeartbeat Kind = "heartbeat"
	KindConnected Kind = "connected"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindUpdate, KindHeartbeat, KindConnected:
		return true
	}
	return false
}

// ParseKind converts a wire value into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Event is a single item of a channel feed.
type Event struct {
	Channel  string `json:"channel"`
	Sequence uint64 `json:"sequence,omitempty"`
	Kind     Kind   `json:"kind"`
	// Payload is opaque to the feed; encoding is owned by an external codec.
	Payload   string    `json:"payload,omitempty"`
	EmittedAt time.Time `json:"emitted_at,omitzero"`
	// ReceivedAt is stamped by consumers when the frame arrives.
	ReceivedAt time.Time `json:"received_at,omitzero"`
}

// IsSnapshot reports whether the event is an unsequenced snapshot of the
// latest known state, as sent to a connection right after it attaches.
func (e Event) IsSnapshot() bool {
	return e.Kind == KindUpdate && e.Sequence == 0
}

// Update builds a sequenced domain event.
func Update(channel string, seq uint64, payload string, at time.Time) Event {
	return Event{
		Channel:   channel,
		Sequence:  seq,
		Kind:      KindUpdate,
		Payload:   payload,
		EmittedAt: at,
	}
}

// Heartbeat builds a no-op keep-alive event.
func Heartbeat(channel string, at time.Time) Event {
	return Event{Channel: channel, Kind: KindHeartbeat, EmittedAt: at}
}

// Connected builds the synthetic signal sent when a connection opens.
// It never consumes a sequence id.
func Connected(channel, message string, at time.Time) Event {
	return Event{Channel: channel, Kind: KindConnected, Payload: message, EmittedAt: at}
}
