package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/donaldgifford/cmr-client/internal/metrics"
	mw "github.com/donaldgifford/cmr-client/internal/middleware"
)

func TestMetricsMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		route      string
		path       string
		handler    echo.HandlerFunc
		wantStatus int
	}{
		{
			name:   "records 200 by route pattern",
			method: http.MethodGet,
			route:  "/search/:resource",
			path:   "/search/granules.json",
			handler: func(c echo.Context) error {
				return c.JSON(http.StatusOK, map[string]any{"items": []any{}})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "records handler error status",
			method: http.MethodGet,
			route:  "/search/concepts/:id",
			path:   "/search/concepts/G404-PROV",
			handler: func(_ echo.Context) error {
				return echo.NewHTTPError(http.StatusNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "records PUT request",
			method: http.MethodPut,
			route:  "/ingest/providers/:provider/:plural/:id",
			path:   "/ingest/providers/PROV/granules/G1",
			handler: func(c echo.Context) error {
				return c.NoContent(http.StatusCreated)
			},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(mw.Metrics())
			e.Add(tt.method, tt.route, tt.handler)

			status := strconv.Itoa(tt.wantStatus)
			before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(tt.method, tt.route, status))

			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			after := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(tt.method, tt.route, status))
			assert.InDelta(t, 1.0, after-before, 0.0001)
		})
	}
}

func TestMetricsMiddleware_SkipsScrapes(t *testing.T) {
	e := echo.New()
	e.Use(mw.Metrics())
	e.GET("/metrics", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	before := testutil.CollectAndCount(metrics.HTTPRequestsTotal)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, before, testutil.CollectAndCount(metrics.HTTPRequestsTotal))
}
