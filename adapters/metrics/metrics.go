// Package metrics provides Prometheus metrics collection for recordbase.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artpar/recordbase/ports"
)

const namespace = "recordbase"

// Collector holds all Prometheus metrics for recordbase.
type Collector struct {
	// Engine metrics
	ValidationFailures   *prometheus.CounterVec
	Saves                *prometheus.CounterVec
	UniquenessViolations *prometheus.CounterVec
	AccessDenials        *prometheus.CounterVec

	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates a collector on its own registry, so several collectors can
// coexist in one process.
func New() *Collector {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates a collector registering every metric with reg.
// Handler serves reg when it is also a Gatherer.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Total number of rejected validation passes",
			},
			[]string{"model", "pass"},
		),
		Saves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saves_total",
				Help:      "Total number of record writes",
			},
			[]string{"model", "operation"},
		),
		UniquenessViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uniqueness_violations_total",
				Help:      "Total number of duplicated unique keys detected",
			},
			[]string{"model"},
		),
		AccessDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_denied_total",
				Help:      "Total number of denied access gate checks",
			},
			[]string{"model", "mode"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}
	return c
}

// ValidationFailed implements ports.Metrics.
func (c *Collector) ValidationFailed(model, pass string) {
	c.ValidationFailures.WithLabelValues(model, pass).Inc()
}

// RecordSaved implements ports.Metrics.
func (c *Collector) RecordSaved(model, operation string) {
	c.Saves.WithLabelValues(model, operation).Inc()
}

// UniquenessViolated implements ports.Metrics.
func (c *Collector) UniquenessViolated(model string) {
	c.UniquenessViolations.WithLabelValues(model).Inc()
}

// AccessDenied implements ports.Metrics.
func (c *Collector) AccessDenied(model, mode string) {
	c.AccessDenials.WithLabelValues(model, mode).Inc()
}

// ConfigReloaded counts a successful reload and stamps its time.
func (c *Collector) ConfigReloaded() {
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
}

// ConfigReloadFailed counts a rejected reload.
func (c *Collector) ConfigReloadFailed() {
	c.ConfigReloadErrors.Inc()
}

// Handler serves the collector's registry in the Prometheus text format.
// Without a gatherer it falls back to the default registry.
func (c *Collector) Handler() http.Handler {
	if c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

var _ ports.Metrics = (*Collector)(nil)
