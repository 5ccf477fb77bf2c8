package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/cmr-client/internal/metrics"
)

// metricsSkipPaths are scraped or probed too often to be worth recording.
var metricsSkipPaths = map[string]struct{}{
	"/metrics": {},
	"/healthz": {},
}

// Metrics returns Echo middleware that records request duration and status,
// labeled by the route pattern rather than the raw path.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}

			if _, skip := metricsSkipPaths[path]; skip {
				return next(c)
			}

			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method

			metrics.HTTPRequestDuration.
				WithLabelValues(method, path, status).
				Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.
				WithLabelValues(method, path, status).
				Inc()

			return nil
		}
	}
}
