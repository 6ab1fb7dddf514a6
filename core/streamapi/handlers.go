package streamapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/dmitrymomot/spinstream/core/broadcast"
	"github.com/dmitrymomot/spinstream/core/logger"
	"github.com/dmitrymomot/spinstream/core/sse"
	"github.com/dmitrymomot/spinstream/core/stream"
)

type publishResponse struct {
	Sequence uint64 `json:"sequence"`
}

var (
	errInvalidChannel = echo.NewHTTPError(http.StatusBadRequest, "invalid channel")
	errChannelFull    = echo.NewHTTPError(http.StatusServiceUnavailable, "channel is full")
	errEmptyPayload   = echo.NewHTTPError(http.StatusBadRequest, "empty payload")
	errPayloadTooBig  = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
)

func channelParam(c echo.Context) (string, error) {
	name := c.Param("channel")
	if err := stream.ValidateChannel(name); err != nil {
		return "", errInvalidChannel
	}
	return name, nil
}

func (a *API) handleStream(c echo.Context) error {
	name, err := channelParam(c)
	if err != nil {
		return err
	}

	w := c.Response()
	h := w.Header()
	h.Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	ctx := c.Request().Context()
	conn, err := a.reg.Attach(ctx, name, broadcast.NewSSESink(w))
	switch {
	case errors.Is(err, broadcast.ErrChannelFull):
		h.Del(echo.HeaderContentType)
		return errChannelFull
	case err != nil:
		// The connection is gone; nothing more can be written.
		return nil
	}
	defer a.reg.Detach(conn)

	select {
	case <-conn.Done():
	case <-ctx.Done():
	}
	return nil
}

func (a *API) handleWebSocket(c echo.Context) error {
	name, err := channelParam(c)
	if err != nil {
		return err
	}

	ws, err := a.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		a.log.DebugContext(c.Request().Context(), "websocket upgrade failed", logger.Error(err))
		return nil
	}

	ctx := c.Request().Context()
	conn, err := a.reg.Attach(ctx, name, broadcast.NewWebSocketSink(ws))
	if err != nil {
		if errors.Is(err, broadcast.ErrChannelFull) {
			msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "channel is full")
			_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		}
		_ = ws.Close()
		return nil
	}
	defer a.reg.Detach(conn)

	// Viewers never send data; the read pump only notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-conn.Done():
	case <-closed:
	case <-ctx.Done():
	}
	return nil
}

func (a *API) handleSnapshot(c echo.Context) error {
	name, err := channelParam(c)
	if err != nil {
		return err
	}

	ev, ok := a.reg.Snapshot(name)
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return c.Blob(http.StatusOK, "text/event-stream; charset=utf-8", sse.Encode(ev))
}

func (a *API) handlePublish(c echo.Context) error {
	name, err := channelParam(c)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, a.maxPayload))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errPayloadTooBig
		}
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	if len(body) == 0 {
		return errEmptyPayload
	}

	ctx := c.Request().Context()
	seq, err := a.svc.Publish(ctx, name, string(body))
	if err != nil {
		a.log.ErrorContext(ctx, "publish failed", logger.Channel(name), logger.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	a.log.DebugContext(ctx, "event published", logger.Channel(name), logger.Sequence(seq))
	return c.JSON(http.StatusOK, publishResponse{Sequence: seq})
}

func (a *API) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, a.reg.Stats())
}
