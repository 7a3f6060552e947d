// Package metrics exposes Prometheus metrics for the item service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Each
// Collector owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Business metrics
	Mutations     *prometheus.CounterVec
	CommentsAdded prometheus.Counter

	// Store metrics
	StoreErrors *prometheus.CounterVec
}

// NewCollector creates a collector with the given namespace. activityLen,
// when non-nil, is sampled on every scrape as the activity_entries gauge.
func NewCollector(namespace string, activityLen func() int) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "item_mutations_total",
				Help:      "Total number of successful item mutations by action",
			},
			[]string{"action"},
		),
		CommentsAdded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comments_added_total",
				Help:      "Total number of comments appended to items",
			},
		),
		StoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Total number of unexpected document store failures",
			},
			[]string{"operation"},
		),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Mutations,
		c.CommentsAdded,
		c.StoreErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if activityLen != nil {
		c.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "activity_entries",
				Help:      "Number of entries currently held in the activity log",
			},
			func() float64 { return float64(activityLen()) },
		))
	}

	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordMutation counts a successful create, update or delete.
func (c *Collector) RecordMutation(action string) {
	c.Mutations.WithLabelValues(action).Inc()
}

// RecordComment counts an appended comment.
func (c *Collector) RecordComment() {
	c.CommentsAdded.Inc()
}

// RecordStoreError counts an unexpected store failure for op.
func (c *Collector) RecordStoreError(op string) {
	c.StoreErrors.WithLabelValues(op).Inc()
}
