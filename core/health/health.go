package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrymomot/spinstream/core/logger"
)

// DefaultCheckTimeout bounds the whole readiness probe.
const DefaultCheckTimeout = 5 * time.Second

// Check is a named dependency probe.
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// Liveness indicates the process is running. Always "ALIVE" with 200 OK.
func Liveness(c echo.Context) error {
	return c.String(http.StatusOK, "ALIVE")
}

// Readiness verifies every dependency. Returns "READY" when all checks pass,
// 503 naming the first failing check otherwise. Error details are only logged.
func Readiness(log *slog.Logger, checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), DefaultCheckTimeout)
		defer cancel()

		for _, check := range checks {
			if err := check.Fn(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed",
					slog.String("check", check.Name),
					logger.Error(err),
				)
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"status":       "unavailable",
					"failed_check": check.Name,
				})
			}
		}

		return c.String(http.StatusOK, "READY")
	}
}
