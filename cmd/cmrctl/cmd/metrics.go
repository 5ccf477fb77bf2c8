package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/cmr-client/internal/config"
	"github.com/donaldgifford/cmr-client/internal/middleware"
)

func newMetricsServer(cfg config.MetricsConfig, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recovery(logger))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET(cfg.Path, echo.WrapHandler(promhttp.Handler()))

	return e
}

// startMetricsServer binds cfg.Addr before returning so a busy port fails the
// command instead of a background goroutine.
func startMetricsServer(cfg config.MetricsConfig, logger *slog.Logger) (*echo.Echo, error) {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", cfg.Addr, err)
	}

	e := newMetricsServer(cfg, logger)
	e.Listener = ln

	go func() {
		if err := e.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "err", err)
		}
	}()

	logger.Info("serving metrics", "addr", ln.Addr().String(), "path", cfg.Path)
	return e, nil
}
