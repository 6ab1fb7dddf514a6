package feed

import "fmt"

// Method names a transport.
type Method string

const (
	MethodWebSocket  Method = "websocket"
	MethodSSEDirect  Method = "sse-direct"
	MethodSSEProxied Method = "sse-proxied"
	MethodPolling    Method = "polling"
)

// DefaultOrder is the fixed preference order, realtime transport first.
var DefaultOrder = []Method{MethodWebSocket, MethodSSEDirect, MethodSSEProxied, MethodPolling}

// ParseMethod converts a configuration value into a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	switch m {
	case MethodWebSocket, MethodSSEDirect, MethodSSEProxied, MethodPolling:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}
