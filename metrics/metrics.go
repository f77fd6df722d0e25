// Package metrics exposes logging activity as Prometheus metrics.
//
// Collector is an hlog.Observer (events, configuration swaps, reported
// errors) and a writer.MetricsCollector (bytes written by the built-in
// appenders). Register it on a Handle with hlog.WithObservers or
// Handle.AddObserver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trickstertwo/hlog"
)

// Collector implements hlog.Observer.
type Collector struct {
	events       *prometheus.CounterVec
	errors       *prometheus.CounterVec
	swaps        prometheus.Counter
	minLevel     prometheus.Gauge
	bytes        *prometheus.CounterVec
	writeFailure *prometheus.CounterVec
}

// New registers the collector's metrics on reg under namespace (default
// "hlog"). A nil reg means prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "hlog"
	}
	f := promauto.With(reg)
	return &Collector{
		// Labels: level (trace, debug, info, warn, error, fatal)
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of dispatched log events by level",
		}, []string{"level"}),
		// Labels: kind (source_read, parse, invalid_config, appender_build, append, install, other)
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of reported logging failures by kind",
		}, []string{"kind"}),
		swaps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_swaps_total",
			Help:      "Total number of published configuration replacements",
		}),
		minLevel: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "min_level",
			Help:      "Least restrictive threshold of the active configuration (slog scale)",
		}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "bytes_total",
			Help:      "Total bytes written by built-in appenders by level",
		}, []string{"level"}),
		writeFailure: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "write_errors_total",
			Help:      "Total failed writes of built-in appenders by level",
		}, []string{"level"}),
	}
}

// Track seeds the min_level gauge from h and registers c as its observer.
func (c *Collector) Track(h *hlog.Handle) {
	c.minLevel.Set(float64(h.MinLevel()))
	h.AddObserver(c)
}

func (c *Collector) OnEvent(e hlog.EventData) {
	c.events.WithLabelValues(levelLabel(e.Level)).Inc()
}

func (c *Collector) OnConfig(ch hlog.ConfigChange) {
	c.swaps.Inc()
	c.minLevel.Set(float64(ch.NewMin))
}

func (c *Collector) OnError(err error) {
	c.errors.WithLabelValues(hlog.ErrorKind(err)).Inc()
}

// Written implements writer.MetricsCollector.
func (c *Collector) Written(level hlog.Level, size int, err error) {
	l := levelLabel(level)
	if err != nil {
		c.writeFailure.WithLabelValues(l).Inc()
	}
	if size > 0 {
		c.bytes.WithLabelValues(l).Add(float64(size))
	}
}

func levelLabel(l hlog.Level) string {
	b, _ := l.MarshalText()
	return string(b)
}
