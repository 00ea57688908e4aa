package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/mikutaniguchi/ticket-collection/internal/metrics"
)

func TestPrometheusMetrics(t *testing.T) {
	e := echo.New()
	e.Use(PrometheusMetrics("/metrics"))
	e.GET("/api/v1/tickets/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/metrics", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	counted := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/tickets/:id", "204")
	skipped := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/metrics", "200")
	before, beforeSkipped := testutil.ToFloat64(counted), testutil.ToFloat64(skipped)

	for _, path := range []string{"/api/v1/tickets/a", "/api/v1/tickets/b", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counted))
	assert.Equal(t, beforeSkipped, testutil.ToFloat64(skipped))
	assert.Zero(t, testutil.ToFloat64(metrics.HTTPRequestsInFlight))
}
