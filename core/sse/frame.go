package sse

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/dmitrymomot/spinstream/core/stream"
)

const (
	commentConnected = "connected"
	commentHeartbeat = "heartbeat"
)

// Encode frames ev for the wire.
func Encode(ev stream.Event) []byte {
	switch ev.Kind {
	case stream.KindConnected:
		msg := strings.TrimSpace(flatten(ev.Payload))
		if msg == "" {
			return Comment(commentConnected)
		}
		return Comment(commentConnected + " " + msg)
	case stream.KindHeartbeat:
		return Comment(commentHeartbeat)
	}

	var b bytes.Buffer
	b.Grow(len(ev.Payload) + 32)
	b.WriteString("event: ")
	b.WriteString(string(ev.Kind))
	b.WriteByte('\n')
	if ev.Sequence > 0 {
		b.WriteString("id: ")
		b.WriteString(strconv.FormatUint(ev.Sequence, 10))
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(ev.Payload, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes()
}

// Comment frames a comment line.
func Comment(text string) []byte {
	return []byte(": " + flatten(text) + "\n\n")
}

func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
