// Package metrics collects and exposes Prometheus metrics for the console's
// outbound edge: gateway requests and moderation actions.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the gateway and store record through.
type Recorder interface {
	RecordRequest(endpoint string, statusCode int, duration time.Duration)
	RecordRequestFailure(endpoint string)
	RecordAction(action string, outcome string)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestFailures *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	actionsTotal    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diary_console_requests_total",
			Help: "Gateway requests by endpoint and HTTP status code",
		}, []string{"endpoint", "status_code"}),
		requestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diary_console_request_failures_total",
			Help: "Gateway requests that failed before an HTTP status was received",
		}, []string{"endpoint"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diary_console_request_duration_seconds",
			Help:    "Gateway request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "diary_console_moderation_actions_total",
			Help: "Moderation actions by action and outcome",
		}, []string{"action", "outcome"}),
	}

	reg.MustRegister(
		c.requestsTotal,
		c.requestFailures,
		c.requestLatency,
		c.actionsTotal,
	)

	return c
}

func (c *Collector) RecordRequest(endpoint string, statusCode int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	c.requestLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (c *Collector) RecordRequestFailure(endpoint string) {
	c.requestFailures.WithLabelValues(endpoint).Inc()
}

func (c *Collector) RecordAction(action string, outcome string) {
	c.actionsTotal.WithLabelValues(action, outcome).Inc()
}

// Noop is a Recorder that discards everything. Used when metrics are
// disabled and in tests.
type Noop struct{}

func (Noop) RecordRequest(string, int, time.Duration) {}
func (Noop) RecordRequestFailure(string)              {}
func (Noop) RecordAction(string, string)              {}

// Handler returns the HTTP handler serving /metrics for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
