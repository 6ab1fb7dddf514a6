package feed

import (
	"context"
	"fmt"
	"net/url"
)

// Transport opens sessions to the producer for one channel.
type Transport interface {
	Method() Method
	// Open establishes a session. ctx bounds only the opening handshake;
	// the returned session lives until Close.
	Open(ctx context.Context, channel string) (Session, error)
}

// Session yields raw SSE frames.
type Session interface {
	// Next blocks until the next frame arrives, the session fails, or ctx ends.
	Next(ctx context.Context) ([]byte, error)
	// Close releases the session and unblocks a pending Next. Safe to call
	// more than once and concurrently with Next.
	Close() error
}

func endpoint(base string, elem ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, base)
	}
	return u.JoinPath(elem...).String(), nil
}

func websocketEndpoint(base, channel string) (string, error) {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, base)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	return u.JoinPath("ws", channel).String(), nil
}
