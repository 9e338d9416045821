// Package metrics exposes Prometheus instrumentation for the clinic server:
// HTTP request counters and latency histograms, plus a /metrics handler.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// defaultDurationBuckets are the latency bucket boundaries in seconds.
var defaultDurationBuckets = []float64{
	0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0,
}

// Registry bundles the server's Prometheus collectors. Handlers, middleware
// and services share a single Registry created at startup.
type Registry struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	dbPoolActive    prometheus.Gauge
	dbPoolIdle      prometheus.Gauge
	wsClients       prometheus.Gauge
}

// NewRegistry creates a Registry with all collectors registered on a private
// Prometheus registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: defaultDurationBuckets,
		}, []string{"method", "route"}),
		activeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of in-flight HTTP requests.",
		}),
		dbPoolActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_active_connections",
			Help: "Number of acquired database pool connections.",
		}),
		dbPoolIdle: factory.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_idle_connections",
			Help: "Number of idle database pool connections.",
		}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_clients",
			Help: "Number of connected realtime websocket clients.",
		}),
	}
}

// SetDBPoolStats updates the database pool gauges.
func (r *Registry) SetDBPoolStats(active, idle int64) {
	r.dbPoolActive.Set(float64(active))
	r.dbPoolIdle.Set(float64(idle))
}

// WSClientConnected increments the realtime client gauge.
func (r *Registry) WSClientConnected() { r.wsClients.Inc() }

// WSClientDisconnected decrements the realtime client gauge.
func (r *Registry) WSClientDisconnected() { r.wsClients.Dec() }

// Middleware returns an Echo middleware that records request count, latency
// and in-flight gauge for every request.
func (r *Registry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r.activeRequests.Inc()
			start := time.Now()

			err := next(c)

			r.activeRequests.Dec()

			req := c.Request()
			// Route pattern, not the raw path, to keep cardinality bounded.
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			r.requestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
			r.requestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler returns the /metrics handler serving the Prometheus text format.
func (r *Registry) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Gather exposes the underlying registry's Gather for tests.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.registry.Gather()
}
