package feed

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"

	"github.com/dmitrymomot/spinstream/core/sse"
)

// SSETransport streams server-sent events from {base}/stream/{channel}.
// The same implementation serves the direct and the proxied method; only the
// base URL differs.
type SSETransport struct {
	method   Method
	base     string
	client   *http.Client
	maxFrame int
}

// NewSSETransport creates an SSE transport reporting method. A nil client
// uses a client without timeout, which long-lived streams need.
func NewSSETransport(method Method, baseURL string, client *http.Client) *SSETransport {
	if client == nil {
		client = &http.Client{}
	}
	return &SSETransport{method: method, base: baseURL, client: client, maxFrame: sse.DefaultMaxFrameSize}
}

func (t *SSETransport) Method() Method { return t.method }

func (t *SSETransport) Open(ctx context.Context, channel string) (Session, error) {
	u, err := endpoint(t.base, "stream", channel)
	if err != nil {
		return nil, err
	}

	// The request outlives ctx, which only bounds the handshake.
	sessCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)

	req, err := http.NewRequestWithContext(sessCtx, http.MethodGet, u, nil)
	if err != nil {
		stop()
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.client.Do(req)
	if !stop() {
		if err == nil {
			_ = resp.Body.Close()
		}
		return nil, ctx.Err()
	}
	if err != nil {
		cancel()
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedType, mt)
	}

	return &sseSession{
		body:   resp.Body,
		reader: sse.NewReader(resp.Body, t.maxFrame),
		cancel: cancel,
	}, nil
}

type sseSession struct {
	body   io.ReadCloser
	reader *sse.Reader
	cancel context.CancelFunc
	once   sync.Once
}

func (s *sseSession) Next(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()
	return s.reader.Next()
}

func (s *sseSession) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}
