package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCheckIn(t *testing.T) {
	before := testutil.ToFloat64(checkIns.WithLabelValues("scan", OutcomeFull))
	Recorder{}.ObserveCheckIn("scan", OutcomeFull)
	Recorder{}.ObserveCheckIn("scan", OutcomeFull)
	assert.Equal(t, before+2, testutil.ToFloat64(checkIns.WithLabelValues("scan", OutcomeFull)))
}

func TestMiddlewareAndHandler(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/metrics", echo.WrapHandler(Handler()))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `eventdesk_http_request_duration_seconds_count{method="GET",route="/ping",status="200"}`)
}
