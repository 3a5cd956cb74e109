package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/eventdesk/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns a request id (reusing the caller's X-Request-ID when
// present), stores it on the request context for logging.Ctx and writes one
// structured line per request once the handler returns.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			id := req.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 64 {
				id = logging.NewRequestID()
			}
			c.Response().Header().Set(RequestIDHeader, id)
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))

			err := next(c)
			if err != nil {
				// Let echo's error handler pick the status before we log it.
				c.Error(err)
			}

			status := c.Response().Status
			var ev *zerolog.Event
			l := logging.Ctx(c.Request().Context())
			switch {
			case status >= 500:
				ev = l.Error().Err(err)
			case status >= 400:
				ev = l.Warn()
			default:
				ev = l.Info()
			}
			ev.Str("method", req.Method).
				Str("path", c.Path()).
				Str("uri", req.RequestURI).
				Int("status", status).
				Int64("bytes", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")
			return nil
		}
	}
}
