package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	service         string
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	externalLatency *prometheus.HistogramVec
}

func NewMetrics(service string) *Metrics {
	m := &Metrics{
		service:  service,
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newswire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests processed.",
		}, []string{"service", "method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newswire",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request durations in seconds.",
		}, []string{"service", "path"}),
		externalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newswire",
			Subsystem: "external",
			Name:      "operation_duration_seconds",
			Help:      "Duration of external operations in seconds.",
		}, []string{"service", "component", "method", "status"}),
	}
	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.externalLatency)
	return m
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.registry
}

// Handler serves the scrape endpoint in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{})
}

func (m *Metrics) Middleware() echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return next(c)
			}
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			// the error handler runs after this middleware returns, so
			// Response().Status still reads 200 for errors; resolve the
			// status the handler will render instead
			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status, _, _ = resolveError(err)
			}

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}

			m.requestsTotal.WithLabelValues(m.service, c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.requestDuration.WithLabelValues(m.service, path).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

func (m *Metrics) ObserveStore(method string, err error, duration time.Duration) {
	m.observeExternal("mongo", method, err, duration)
}

func (m *Metrics) ObserveSearch(method string, err error, duration time.Duration) {
	m.observeExternal("typesense", method, err, duration)
}

func (m *Metrics) ObserveProfile(method string, err error, duration time.Duration) {
	m.observeExternal("profile_db", method, err, duration)
}

func (m *Metrics) observeExternal(component, method string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.externalLatency.WithLabelValues(m.service, component, method, status).Observe(duration.Seconds())
}
