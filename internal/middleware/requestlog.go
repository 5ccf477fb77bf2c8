// Package middleware provides Echo middleware shared by the HTTP endpoints
// cmrctl and the mock CMR server expose.
package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDHeader is the correlation header CMR clients send.
const RequestIDHeader = "CMR-Request-Id"

// RequestLog returns Echo middleware that logs requests with structured
// fields. It keeps the caller's CMR-Request-Id, generating one when absent,
// and echoes it on the response.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			c.Set("request_id", reqID)
			c.Response().Header().Set(RequestIDHeader, reqID)

			err := next(c)
			if err != nil {
				// Let Echo write the error so the logged status is final.
				c.Error(err)
			}

			status := c.Response().Status
			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelWarn
			}

			log.Log(c.Request().Context(), level, "request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
				"client_id", c.Request().Header.Get("Client-Id"),
			)

			return nil
		}
	}
}
