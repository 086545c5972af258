package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehs/ehs/internal/platform/auth"
)

// Logger emits one structured line per request. Besides the usual
// method/path/status/latency fields it attributes the request to the
// authenticated actor when the token middleware has resolved one, which is
// what ties an access log line back to an audit trail entry.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			// Read the request after the chain ran so the actor set by the
			// token middleware is visible here.
			req := c.Request()
			rid, _ := c.Get("request_id").(string)
			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())
			if actor := auth.UserIDFromContext(req.Context()); actor != "" {
				evt = evt.Str("actor", actor).Str("actor_role", auth.RoleFromContext(req.Context()))
			}
			evt.Msg("request")

			return err
		}
	}
}
