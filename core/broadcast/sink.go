package broadcast

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Sink is the write side of one viewer connection.
type Sink interface {
	// WriteFrame writes one encoded frame. Implementations honour the
	// context deadline as the write deadline.
	WriteFrame(ctx context.Context, frame []byte) error
	// Close releases the connection. Writes after Close fail with ErrSinkClosed.
	Close() error
}

// SSESink writes frames to a streaming HTTP response.
type SSESink struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	rc     *http.ResponseController
	closed bool
}

// NewSSESink wraps w. The caller sets response headers before attaching.
func NewSSESink(w http.ResponseWriter) *SSESink {
	return &SSESink{w: w, rc: http.NewResponseController(w)}
}

func (s *SSESink) WriteFrame(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := s.rc.SetWriteDeadline(dl); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Close marks the sink closed. The HTTP handler owning the response returns
// once the connection's Done channel is closed.
func (s *SSESink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// WebSocketSink writes each frame as one text message.
type WebSocketSink struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewWebSocketSink(conn *websocket.Conn) *WebSocketSink {
	return &WebSocketSink{conn: conn}
}

func (s *WebSocketSink) WriteFrame(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dl, _ := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(dl); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *WebSocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}
