package streamapi

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dmitrymomot/spinstream/core/broadcast"
	"github.com/dmitrymomot/spinstream/core/health"
	"github.com/dmitrymomot/spinstream/core/logger"
)

// API serves the stream endpoints.
type API struct {
	svc        *broadcast.Service
	reg        *broadcast.Registry
	log        *slog.Logger
	checks     []health.Check
	metrics    http.Handler
	maxPayload int64
	publish    bool
	upgrader   websocket.Upgrader
}

// New creates the API on top of svc.
func New(svc *broadcast.Service, opts ...Option) *API {
	a := &API{
		svc:        svc,
		reg:        svc.Registry(),
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxPayload: DefaultMaxPayloadSize,
		publish:    true,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(logger.Component("streamapi"))
	return a
}

// Handler builds the echo instance with every route registered.
func (a *API) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			a.log.LogAttrs(c.Request().Context(), slog.LevelDebug, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				logger.StatusCode(v.Status),
				slog.Duration("latency", v.Latency),
				logger.Error(v.Error),
			)
			return nil
		},
	}))

	a.Register(e)
	return e
}

// Register mounts the routes on e.
func (a *API) Register(e *echo.Echo) {
	e.GET("/health/live", health.Liveness)
	e.GET("/health/ready", health.Readiness(a.log, a.checks...))
	if a.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(a.metrics))
	}

	e.GET("/stream/:channel", a.handleStream)
	e.GET("/ws/:channel", a.handleWebSocket)
	e.GET("/channel/:channel/snapshot", a.handleSnapshot)
	if a.publish {
		e.POST("/channel/:channel/publish", a.handlePublish)
	}
	e.GET("/stats", a.handleStats)
}
