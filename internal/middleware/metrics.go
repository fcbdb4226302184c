package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
)

// Gate decision labels.
const (
	GateRateLimit = "rate_limit"
	GateCSRF      = "csrf"

	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

// Metrics holds the HTTP and gate collectors. Collectors are registered on
// the Registerer handed to NewMetrics so tests can use a private registry.
type Metrics struct {
	inFlight        prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	gateDecisions   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		gateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gate_decisions_total",
				Help: "Decisions taken by the request gate, by gate and outcome.",
			},
			[]string{"gate", "outcome"},
		),
	}
	reg.MustRegister(m.inFlight, m.requestsTotal, m.requestDuration, m.gateDecisions)
	return m
}

// GateDecision records one gate outcome. Safe on a nil receiver.
func (m *Metrics) GateDecision(gate, outcome string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(gate, outcome).Inc()
}

// Middleware measures request count and latency. The route label uses the
// registered route pattern, not the raw path, to bound cardinality.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.inFlight.Inc()
			defer m.inFlight.Dec()

			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := strconv.Itoa(responseStatus(c, err))
			m.requestDuration.WithLabelValues(c.Request().Method, route, status).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(c.Request().Method, route, status).Inc()
			return err
		}
	}
}

// responseStatus predicts the status the error handler will write for err.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		if c.Response().Committed {
			return c.Response().Status
		}
		return http.StatusOK
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return apperror.SafeCode(err)
}
