// Package metrics exposes Prometheus collectors for the echo server.
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "echo").
	Namespace string

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Collector holds the server metrics.
type Collector struct {
	accepted      prometheus.Counter
	active        prometheus.Gauge
	connErrors    *prometheus.CounterVec
	acceptErrors  prometheus.Counter
	echoedBytes   prometheus.Counter
	goodbyes      prometheus.Counter
	signals       *prometheus.CounterVec
	joinErrors    prometheus.Counter
	drainDuration prometheus.Histogram
}

// New registers the collectors.
func New(opts ...Option) *Collector {
	cfg := Config{
		Namespace: "echo",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Collector{
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted connections",
		}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "connections_active",
			Help:      "Number of connection handlers currently running",
		}),
		connErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "connection_errors_total",
			Help:      "Connection handlers that ended with an error, by kind",
		}, []string{"kind"}),
		acceptErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "accept_errors_total",
			Help:      "Transient accept errors",
		}),
		echoedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "echoed_bytes_total",
			Help:      "Bytes echoed back to peers",
		}),
		goodbyes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "goodbyes_sent_total",
			Help:      "Shutdown notices written to peers",
		}),
		signals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "shutdown_signals_total",
			Help:      "Shutdown signals observed, by classification",
		}, []string{"status"}),
		joinErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "task_join_errors_total",
			Help:      "Connection handlers that panicked",
		}),
		drainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "drain_duration_seconds",
			Help:      "Time spent waiting for connection handlers after shutdown",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ConnectionOpened counts an accepted connection and raises the active gauge.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.accepted.Inc()
	c.active.Inc()
}

// ConnectionClosed lowers the active connection gauge.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.active.Dec()
}

// ConnectionError counts a connection that ended with an error of the given kind.
func (c *Collector) ConnectionError(kind string) {
	if c == nil {
		return
	}
	c.connErrors.WithLabelValues(kind).Inc()
}

// AcceptError counts a transient accept failure.
func (c *Collector) AcceptError() {
	if c == nil {
		return
	}
	c.acceptErrors.Inc()
}

// Echoed adds n to the echoed byte counter.
func (c *Collector) Echoed(n int) {
	if c == nil {
		return
	}
	c.echoedBytes.Add(float64(n))
}

// GoodbyeSent counts a shutdown notice written to a client.
func (c *Collector) GoodbyeSent() {
	if c == nil {
		return
	}
	c.goodbyes.Inc()
}

// ShutdownSignal counts how the accept loop observed shutdown.
func (c *Collector) ShutdownSignal(status string) {
	if c == nil {
		return
	}
	c.signals.WithLabelValues(status).Inc()
}

// JoinError counts a connection task that panicked.
func (c *Collector) JoinError() {
	if c == nil {
		return
	}
	c.joinErrors.Inc()
}

// Drained records how long waiting for connection tasks took.
func (c *Collector) Drained(d time.Duration) {
	if c == nil {
		return
	}
	c.drainDuration.Observe(d.Seconds())
}
