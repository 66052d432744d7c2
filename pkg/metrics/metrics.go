package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"klunkaz/pkg/registry"
)

const namespace = "klunkaz"

// Metrics holds the service's collectors. It implements registry.Recorder.
type Metrics struct {
	gatherer   prometheus.Gatherer
	operations *prometheus.CounterVec
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	events     *prometheus.CounterVec
}

// New registers the collectors on reg. Use prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_operations_total",
			Help:      "Registry operations by name and outcome.",
		}, []string{"op", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_events_total",
			Help:      "Committed registry events by type.",
		}, []string{"type"}),
	}
	reg.MustRegister(m.operations, m.requests, m.duration, m.events)
	return m
}

// ObserveOperation counts one registry call. The outcome is "ok" or the
// error kind.
func (m *Metrics) ObserveOperation(op string, err error) {
	m.operations.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := registry.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "error"
}

// Publish counts committed events, so Metrics can be used as an event sink.
func (m *Metrics) Publish(e registry.Event) {
	m.events.WithLabelValues(string(e.Type)).Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
