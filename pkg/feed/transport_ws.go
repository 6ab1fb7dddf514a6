package feed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/spinstream/core/sse"
)

// WebSocketTransport reads SSE-framed text messages from {base}/ws/{channel}.
type WebSocketTransport struct {
	base   string
	dialer *websocket.Dialer
}

// NewWebSocketTransport creates the realtime transport. http(s) base URLs are
// mapped to ws(s).
func NewWebSocketTransport(baseURL string, dialer *websocket.Dialer) *WebSocketTransport {
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	return &WebSocketTransport{base: baseURL, dialer: dialer}
}

func (t *WebSocketTransport) Method() Method { return MethodWebSocket }

func (t *WebSocketTransport) Open(ctx context.Context, channel string) (Session, error) {
	u, err := websocketEndpoint(t.base, channel)
	if err != nil {
		return nil, err
	}
	conn, resp, err := t.dialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsSession{conn: conn}, nil
}

type wsSession struct {
	conn    *websocket.Conn
	pending [][]byte
	once    sync.Once
}

func (s *wsSession) Next(ctx context.Context) ([]byte, error) {
	if len(s.pending) > 0 {
		f := s.pending[0]
		s.pending = s.pending[1:]
		return f, nil
	}

	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	for {
		mt, msg, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		frames, err := splitFrames(msg)
		if err != nil {
			return nil, err
		}
		if len(frames) == 0 {
			continue
		}
		s.pending = frames[1:]
		return frames[0], nil
	}
}

func (s *wsSession) Close() error {
	var err error
	s.once.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

// splitFrames breaks one message into its frames; producers normally send
// exactly one.
func splitFrames(msg []byte) ([][]byte, error) {
	r := sse.NewReader(bytes.NewReader(msg), len(msg)+1)
	var out [][]byte
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
}
