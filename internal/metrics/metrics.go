// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdesk_checkins_total",
			Help: "Check-in attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	publishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventdesk_publish_failures_total",
			Help: "Check-in events that could not be published to the broker",
		},
	)

	liveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventdesk_live_clients",
			Help: "Connected live-count websocket clients",
		},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Check-in outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeFull     = "full"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Recorder is the check-in engine's view of the collectors.
type Recorder struct{}

// ObserveCheckIn counts one check-in attempt.
func (Recorder) ObserveCheckIn(channel, outcome string) {
	checkIns.WithLabelValues(channel, outcome).Inc()
}

// PublishFailed counts a broker publish that did not go through.
func (Recorder) PublishFailed() { publishFailures.Inc() }

// LiveClientConnected and LiveClientDisconnected track websocket clients.
func (Recorder) LiveClientConnected()    { liveClients.Inc() }
func (Recorder) LiveClientDisconnected() { liveClients.Dec() }

// Middleware records request latency labelled by route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			requestDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
